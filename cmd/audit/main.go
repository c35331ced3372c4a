package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/audit"
	"github.com/ecofinds/ecofinds-orders/internal/config"
	kafkax "github.com/ecofinds/ecofinds-orders/internal/kafka"
	"github.com/ecofinds/ecofinds-orders/internal/logging"
	"github.com/ecofinds/ecofinds-orders/internal/orders"
	"github.com/ecofinds/ecofinds-orders/internal/postgres"
	"github.com/ecofinds/ecofinds-orders/internal/redisx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	service := cfg.ServiceName + "-audit"
	log := logging.New(service, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	svc := &audit.Service{
		Orders: &orders.Repo{DB: db},
		Dedup:  &redisx.Dedup{Redis: rdb, Service: service},
		Log:    log,
	}
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, cfg.AuditGroup, orders.TopicOrderPlaced, cfg.AuditWorkers, log)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("group", cfg.AuditGroup).Str("topic", orders.TopicOrderPlaced).Int("workers", cfg.AuditWorkers).
			Msg("audit consumer started")
		return cons.Start(gctx, svc.HandleOrderPlaced)
	})
	g.Go(func() error {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics listening")
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(sctx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("audit exited")
		return
	}
	log.Info().Msg("audit stopped")
}
