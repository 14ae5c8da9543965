package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/DanMeraDev/ElMayoristaProject/internal/cron"
	"github.com/DanMeraDev/ElMayoristaProject/internal/notifications"
	"github.com/DanMeraDev/ElMayoristaProject/internal/sales"
	"github.com/DanMeraDev/ElMayoristaProject/internal/users"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/config"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/db"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/logger"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/mailer"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/metrics"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/migrate"
	"github.com/DanMeraDev/ElMayoristaProject/pkg/redis"
)

const lockKeyFormat = "mayorista:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	mailClient := mailer.New(cfg.Mailer, logg)

	usersRepo := users.NewRepository(dbClient.DB())
	salesRepo := sales.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())

	notificationsSvc, err := notifications.NewService(notificationsRepo, salesRepo, usersRepo, mailClient, dbClient, cfg.Reminders, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	reminderJob, err := cron.NewReminderJob(cron.ReminderJobParams{
		Logger:    logg,
		Generator: notificationsSvc,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create reminder job", err)
		os.Exit(1)
	}

	env := cfg.App.Env
	if env == "" {
		env = "local"
	}
	lock, err := cron.NewRedisLock(redisClient, fmt.Sprintf(lockKeyFormat, env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create worker lock", err)
		os.Exit(1)
	}

	worker, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(reminderJob),
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create worker", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      env,
		"interval": cfg.Cron.Interval.String(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shut down gracefully")
}
