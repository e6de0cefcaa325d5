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
	"github.com/you/fieldservice-booking/pkg/obs"
	"github.com/you/fieldservice-booking/services/technician-service/internal/repository"
	"github.com/you/fieldservice-booking/services/technician-service/internal/service"
	thttp "github.com/you/fieldservice-booking/services/technician-service/internal/transport/http"
)

type Cfg struct {
	PGTechnicianDSN    string `envconfig:"PG_TECHNICIAN_DSN" required:"true"`
	TechnicianHTTPAddr string `envconfig:"TECHNICIAN_HTTP_ADDR" default:":8082"`
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

	logger := logx.New("technician-service")
	defer logger.Sync()

	shutdownTracer := obs.InitTracer("technician-service")
	defer shutdownTracer(context.Background())

	gdb := db.Open(cfg.PGTechnicianDSN)
	repo := repository.NewTechnicianRepo(gdb)
	must(0, repo.Migrate())

	svc := service.NewTechnicianSvc(repo, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	thttp.NewServer(svc).Register(r)

	srv := &http.Server{Addr: cfg.TechnicianHTTPAddr, Handler: r}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.TechnicianHTTPAddr))
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
