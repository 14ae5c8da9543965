package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DanMeraDev/ElMayoristaProject/api/routes"
	"github.com/DanMeraDev/ElMayoristaProject/internal/cron"
	"github.com/DanMeraDev/ElMayoristaProject/internal/cycles"
	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
	"github.com/DanMeraDev/ElMayoristaProject/internal/payments"
	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/internal/users"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/mailer"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/migrate"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/redis"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/storage/gcs"
)

const cycleCloseLockKey = "mayorista:cycle-close:lock"

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	var gcsClient *gcs.Client
	if cfg.Storage.BucketName != "" {
		gcsClient, err = gcs.NewClient(context.Background(), cfg.Storage, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap artifact storage", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "artifact storage not configured; receipts and reports disabled")
	}

	mailClient := mailer.New(cfg.Mailer, logg)

	usersRepo := users.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())
	paymentsRepo := payments.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	cyclesRepo := cycles.NewRepository(dbClient.DB())

	notificationsSvc, err := notifications.NewService(notificationsRepo, salesRepo, usersRepo, mailClient, dbClient, cfg.Reminders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	salesSvc, err := sales.NewService(salesRepo, usersRepo, dbClient, notificationsSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create sales service", err)
		os.Exit(1)
	}

	var paymentsSvc payments.Service
	if gcsClient != nil {
		paymentsSvc, err = payments.NewService(paymentsRepo, salesRepo, salesSvc, notificationsSvc, gcsClient, dbClient, logg)
	} else {
		paymentsSvc, err = payments.NewService(paymentsRepo, salesRepo, salesSvc, notificationsSvc, nil, dbClient, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	closeLock, err := cron.NewRedisLock(redisClient, cycleCloseLockKey, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cycle close lock", err)
		os.Exit(1)
	}

	var cyclesSvc cycles.Service
	if gcsClient != nil {
		cyclesSvc, err = cycles.NewService(cyclesRepo, salesRepo, gcsClient, closeLock, dbClient, logg)
	} else {
		cyclesSvc, err = cycles.NewService(cyclesRepo, salesRepo, nil, closeLock, dbClient, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create cycles service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DB:            dbClient,
			Redis:         redisClient,
			Storage:       gcsClient,
			Sales:         salesSvc,
			Payments:      paymentsSvc,
			Notifications: notificationsSvc,
			Cycles:        cyclesSvc,
			Metrics:       prometheus.DefaultGatherer,
		}),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
