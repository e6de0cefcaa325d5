package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/pkg/auth"
	"github.com/you/fieldservice-booking/pkg/config"
	"github.com/you/fieldservice-booking/pkg/logx"
	"github.com/you/fieldservice-booking/pkg/obs"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/clients"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/handlers"
	"github.com/you/fieldservice-booking/services/api-gateway/internal/middlewares"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger := logx.New("api-gateway")
	defer logger.Sync()

	shutdownTracer := obs.InitTracer("api-gateway")
	defer shutdownTracer(context.Background())

	c := clients.New(cfg.BookingBaseURL, cfg.TechnicianBaseURL, cfg.BillingBaseURL)
	r := gin.Default()

	bh := handlers.NewBookingHandler(c)
	th := handlers.NewTechnicianHandler(c)
	ih := handlers.NewInvoiceHandler(c)

	v1 := r.Group("/v1")
	{
		secured := v1.Group("")
		secured.Use(middlewares.JWTAuth())
		{
			secured.POST("/bookings", bh.Create)
			secured.GET("/bookings/mine", bh.ListMine)
			secured.GET("/bookings/:id", bh.Get)
			secured.POST("/bookings/:id/cancel", bh.Cancel)
			secured.POST("/bookings/:id/reschedule", bh.Reschedule)

			staff := secured.Group("")
			staff.Use(middlewares.RequireRole(auth.RoleOperator, auth.RoleAdmin))
			staff.GET("/bookings", bh.List)
			staff.POST("/bookings/:id/assign", bh.Assign)
			staff.GET("/technicians", th.List)
			staff.GET("/technicians/:id", th.Get)
			staff.POST("/invoices/:bookingId/pay", ih.MarkPaid)

			progress := secured.Group("")
			progress.Use(middlewares.RequireRole(auth.RoleTechnician, auth.RoleOperator, auth.RoleAdmin))
			progress.POST("/bookings/:id/status", bh.UpdateStatus)

			secured.GET("/invoices", ih.List)
			secured.GET("/invoices/:bookingId", ih.Get)
			secured.POST("/invoices/:bookingId/charge", ih.ChargeCard)
		}
	}

	logger.Info("api-gateway listening", zap.String("addr", cfg.GatewayHTTPAddr))
	if err := r.Run(cfg.GatewayHTTPAddr); err != nil {
		logger.Fatal("run", zap.Error(err))
	}
}
