package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/radieske/bicho-settlement-engine/internal/shared/config"
	"github.com/radieske/bicho-settlement-engine/internal/shared/db"
	"github.com/radieske/bicho-settlement-engine/internal/shared/logger"
	"github.com/radieske/bicho-settlement-engine/migrations"
)

// uso: migrator [up|down]; sem argumento aplica tudo
func main() {
	cfg := config.Load()
	log, err := logger.New("migrator", cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}
	if err := run(cfg.PostgresDSN, direction); err != nil {
		log.Fatal("migration run failed", zap.String("direction", direction), zap.Error(err))
	}
	log.Info("migration run finished", zap.String("direction", direction))
}

func run(dsn, direction string) error {
	pg, err := db.ConnectPostgres(dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()

	driver, err := postgres.WithInstance(pg, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("init postgres driver: %w", err)
	}
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("iofs source: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("migrate instance: %w", err)
	}

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	default:
		return fmt.Errorf("unknown direction %q", direction)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	return nil
}
