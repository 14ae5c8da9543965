package main

import (
	"context"
	"flag"
	"os"

	"github.com/joho/godotenv"

	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/migrate"
)

func main() {
	cmd := flag.String("cmd", "status", "goose command: up, up-to, down, status, version")
	dir := flag.String("dir", migrate.DefaultDir, "directory holding SQL migration files")
	flag.Parse()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
	})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to connect to database", err)
		os.Exit(1)
	}
	defer func() {
		if err := client.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	sqlDB, err := client.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to extract sql connection", err)
		os.Exit(1)
	}

	ctx = logg.WithFields(ctx, map[string]any{"cmd": *cmd, "dir": *dir})
	logg.Info(ctx, "running migration command")

	if err := migrate.Run(ctx, sqlDB, *dir, *cmd, flag.Args()...); err != nil {
		logg.Error(ctx, "migration command failed", err)
		os.Exit(1)
	}

	logg.Info(ctx, "migration command complete")
}
