package main

import (
	"errors"
	"flag"
	"os"

	"github.com/ecofinds/ecofinds-orders/internal/config"
	"github.com/ecofinds/ecofinds-orders/internal/logging"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logging.New("migrate", cfg.LogLevel)

	flag.Parse()
	args := flag.Args()
	if len(args) < 1 {
		log.Error().Msg("usage: migrate <up|down|version>")
		os.Exit(1)
	}
	if cfg.PostgresDSN == "" {
		log.Error().Msg("POSTGRES_DSN is required")
		os.Exit(1)
	}

	m, err := migrate.New(cfg.MigrationsPath, cfg.PostgresDSN)
	if err != nil {
		log.Error().Err(err).Msg("create migrate instance")
		os.Exit(1)
	}
	defer func() { _, _ = m.Close() }()

	switch args[0] {
	case "up":
		err = m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no pending migrations")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("migration up failed")
			os.Exit(1)
		}
		log.Info().Msg("migrations applied")

	case "down":
		err = m.Steps(-1)
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info().Msg("no migrations to roll back")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("migration down failed")
			os.Exit(1)
		}
		log.Info().Msg("migration rolled back")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			log.Info().Msg("no migrations applied yet")
			return
		}
		if err != nil {
			log.Error().Err(err).Msg("read version")
			os.Exit(1)
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("current migration version")

	default:
		log.Error().Str("command", args[0]).Msg("unknown command")
		os.Exit(1)
	}
}
