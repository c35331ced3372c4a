package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecofinds/ecofinds-orders/internal/catalog"
	"github.com/ecofinds/ecofinds-orders/internal/config"
	"github.com/ecofinds/ecofinds-orders/internal/httpx"
	"github.com/ecofinds/ecofinds-orders/internal/identity"
	kafkax "github.com/ecofinds/ecofinds-orders/internal/kafka"
	"github.com/ecofinds/ecofinds-orders/internal/logging"
	"github.com/ecofinds/ecofinds-orders/internal/orders"
	"github.com/ecofinds/ecofinds-orders/internal/postgres"
	"github.com/ecofinds/ecofinds-orders/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logging.New(cfg.ServiceName, cfg.LogLevel)
	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	products := &catalog.Cached{
		Next:  &catalog.Repo{DB: db},
		Redis: rdb,
		TTL:   cfg.CatalogCacheTTL,
		Log:   log,
	}

	// pricing reads Postgres directly; the cache only serves the product endpoints
	svc := &orders.Service{
		Store:               &orders.Repo{DB: db},
		Catalog:             &catalog.Repo{DB: db},
		Log:                 log,
		ServiceName:         cfg.ServiceName,
		RequireCatalogPrice: cfg.RequireCatalogPrice,
	}

	// Kafka producer
	var prod *kafkax.Producer
	if cfg.KafkaEnabled {
		prod = kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderPlaced, 1024, log)
		prod.Start(ctx)
		svc.Publisher = prod
	}

	router := httpx.NewRouter(log)
	auth := &httpx.Authenticator{Verifier: identity.NewVerifier(cfg.JWTSecret), CookieName: cfg.AuthCookieName}
	(&httpx.OrdersHandler{Service: svc, Auth: auth, Log: log}).Register(router)
	(&httpx.CatalogHandler{Products: products, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Bool("kafka", cfg.KafkaEnabled).Msg("HTTP listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if prod != nil {
		prod.Close()
		cancel()
		prod.WaitClosed()
	}
}
