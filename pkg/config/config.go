package config

import (
	"github.com/kelseyhightower/envconfig"
)

type App struct {
	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`

	// Base URLs the gateway dials
	BookingBaseURL    string `envconfig:"BOOKING_BASE_URL" default:"http://booking-service:8081"`
	TechnicianBaseURL string `envconfig:"TECHNICIAN_BASE_URL" default:"http://technician-service:8082"`
	BillingBaseURL    string `envconfig:"BILLING_BASE_URL" default:"http://billing-service:8083"`

	GatewayHTTPAddr string `envconfig:"GATEWAY_HTTP_ADDR" default:":8080"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
