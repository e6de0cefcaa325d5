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
	cons "github.com/you/fieldservice-booking/services/billing-service/internal/consumer"
	"github.com/you/fieldservice-booking/services/billing-service/internal/payments"
	"github.com/you/fieldservice-booking/services/billing-service/internal/repository"
	"github.com/you/fieldservice-booking/services/billing-service/internal/service"
	thttp "github.com/you/fieldservice-booking/services/billing-service/internal/transport/http"
)

type Cfg struct {
	PGBillingDSN    string `envconfig:"PG_BILLING_DSN" required:"true"`
	BillingHTTPAddr string `envconfig:"BILLING_HTTP_ADDR" default:":8083"`

	// consumes booking completion events
	RabbitURL       string `envconfig:"RABBIT_URL" required:"true"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`
	BookingQueue    string `envconfig:"BILLING_BOOKING_QUEUE" default:"billing.booking.q"`

	// publishes invoice events
	BillingExchange string `envconfig:"BILLING_EXCHANGE" default:"billing.exchange"`

	// default single-line-item price when no items are supplied
	BaseServiceFee float64 `envconfig:"BASE_SERVICE_FEE" default:"499"`

	// optional card payments
	OmisePublicKey string `envconfig:"OMISE_PUBLIC_KEY" default:""`
	OmiseSecretKey string `envconfig:"OMISE_SECRET_KEY" default:""`
	Currency       string `envconfig:"PAYMENT_CURRENCY" default:"thb"`
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

	logger := logx.New("billing-service")
	defer logger.Sync()

	shutdownTracer := obs.InitTracer("billing-service")
	defer shutdownTracer(context.Background())

	gdb := db.Open(cfg.PGBillingDSN)
	repo := repository.NewInvoiceRepo(gdb)
	must(0, repo.Migrate())

	pub := must(mq.NewPublisher(cfg.RabbitURL, cfg.BillingExchange))
	defer pub.Close()

	svc := service.NewInvoiceSvc(repo, pub, cfg.BaseServiceFee, logger)

	var pay *payments.Client
	if cfg.OmiseSecretKey != "" {
		pay = must(payments.NewClient(cfg.OmisePublicKey, cfg.OmiseSecretKey))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bookingCons := must(mq.NewConsumer(cfg.RabbitURL, cfg.BookingExchange, cfg.BookingQueue,
		[]string{cons.RKBookingCompleted}, 16))
	defer bookingCons.Close()
	must(0, cons.NewBookingConsumer(svc, bookingCons, logger).Run(ctx))
	logger.Info("consumer started", zap.String("key", cons.RKBookingCompleted))

	r := gin.New()
	r.Use(gin.Recovery())
	thttp.NewServer(svc, pay, cfg.Currency, logger).Register(r)

	srv := &http.Server{Addr: cfg.BillingHTTPAddr, Handler: r}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.BillingHTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("serve", zap.Error(err))
		}
	}()

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch
	cancel()

	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	logger.Info("stopped")
}
