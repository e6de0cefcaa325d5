package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/you/fieldservice-booking/pkg/db"
	"github.com/you/fieldservice-booking/pkg/logx"
	"github.com/you/fieldservice-booking/pkg/mq"
	"github.com/you/fieldservice-booking/pkg/obs"
	"github.com/you/fieldservice-booking/services/booking-service/internal/clients"
	"github.com/you/fieldservice-booking/services/booking-service/internal/repository"
	"github.com/you/fieldservice-booking/services/booking-service/internal/service"
	thttp "github.com/you/fieldservice-booking/services/booking-service/internal/transport/http"
)

type Cfg struct {
	PGBookingDSN    string `envconfig:"PG_BOOKING_DSN" required:"true"`
	BookingHTTPAddr string `envconfig:"BOOKING_HTTP_ADDR" default:":8081"`

	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	TechnicianBaseURL string `envconfig:"TECHNICIAN_BASE_URL" default:"http://technician-service:8082"`
	BillingBaseURL    string `envconfig:"BILLING_BASE_URL" default:"http://billing-service:8083"`
}

func must[T any](v T, err error) T {
	if err != nil {
		log.Fatal(err)
	}
	return v
}

func main() {
	var cfg Cfg
	must(0, envconfig.Process("", &cfg))

	logger := logx.New("booking-service")
	defer logger.Sync()

	shutdownTracer := obs.InitTracer("booking-service")
	defer shutdownTracer(context.Background())

	gdb := db.Open(cfg.PGBookingDSN)
	repo := repository.NewBookingRepo(gdb)
	must(0, repo.Migrate())

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BookingExchange))
	defer pub.Close()

	svc := service.NewBookingSvc(
		repo,
		clients.NewRegistryClient(cfg.TechnicianBaseURL),
		clients.NewBillingClient(cfg.BillingBaseURL),
		pub,
		logger,
	)

	r := gin.New()
	r.Use(gin.Recovery())
	thttp.NewServer(svc).Register(r)

	srv := &http.Server{Addr: cfg.BookingHTTPAddr, Handler: r}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.BookingHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	logger.Info("stopped")
}
