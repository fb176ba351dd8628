package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/internal/worker"
	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/db"
	"github.com/angelmondragon/notifyd/pkg/instance"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/queue"
	"github.com/angelmondragon/notifyd/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"instance": instance.GetID("worker"),
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	jobQueue, err := queue.New(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create delivery queue", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	notifyService, err := notify.NewServiceFromConfig(ctx, cfg, notify.Clients{
		DB:      dbClient,
		Queue:   jobQueue,
		Metrics: metrics.NewDeliveryMetrics(registry),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notify service", err)
		os.Exit(1)
	}

	handlers := queue.NewRegistry()
	notifyService.RegisterJobs(handlers)

	poller, err := worker.NewService(worker.ServiceParams{
		Logger:       logg,
		Queue:        jobQueue,
		Dispatcher:   handlers,
		Metrics:      metrics.NewJobMetrics(registry),
		Lanes:        cfg.Worker.Lanes,
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker", err)
		os.Exit(1)
	}

	svc, err := NewService(ServiceParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		Worker:   poller,
		Gatherer: registry,
	})
	if err != nil {
		logg.Error(ctx, "failed to create worker service", err)
		os.Exit(1)
	}

	logg.Info(logg.WithField(ctx, "lanes", poller.Lanes()), "starting worker")
	if err := svc.Run(ctx); err != nil {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}
