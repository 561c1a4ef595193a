package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/mgutierrezc/shopline-backend/internal/seed"
	usersvc "github.com/mgutierrezc/shopline-backend/internal/users"
	"github.com/mgutierrezc/shopline-backend/pkg/config"
	"github.com/mgutierrezc/shopline-backend/pkg/db"
	"github.com/mgutierrezc/shopline-backend/pkg/logger"
)

// Seeds roles, the bootstrap admin account, and optionally the item feed.
// Safe to rerun: existing roles, admin, and catalog rows are left alone.
func main() {
	logg := logger.New(logger.Options{ServiceName: "seed"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "seed",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	svc, err := seed.NewService(seed.ServiceParams{
		DB:       dbClient.DB(),
		Users:    usersvc.NewRepository(dbClient.DB()),
		Seed:     cfg.Seed,
		Admin:    cfg.Admin,
		Password: cfg.Password,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create seed service", err)
		os.Exit(1)
	}

	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env})
	if err := svc.Run(ctx); err != nil {
		logg.Error(ctx, "seed run failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "seed run complete")
}
