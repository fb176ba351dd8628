package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/notifyd/api/routes"
	"github.com/angelmondragon/notifyd/internal/notify"
	"github.com/angelmondragon/notifyd/internal/users"
	"github.com/angelmondragon/notifyd/pkg/config"
	"github.com/angelmondragon/notifyd/pkg/db"
	"github.com/angelmondragon/notifyd/pkg/env"
	"github.com/angelmondragon/notifyd/pkg/instance"
	"github.com/angelmondragon/notifyd/pkg/logger"
	"github.com/angelmondragon/notifyd/pkg/metrics"
	"github.com/angelmondragon/notifyd/pkg/migrate"
	"github.com/angelmondragon/notifyd/pkg/queue"
	"github.com/angelmondragon/notifyd/pkg/redis"
	"github.com/angelmondragon/notifyd/pkg/twilio"
)

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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	jobQueue, err := queue.New(redisClient)
	if err != nil {
		logg.Error(ctx, "failed to create delivery queue", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	deliveryMetrics := metrics.NewDeliveryMetrics(registry)

	notifyService, err := notify.NewServiceFromConfig(ctx, cfg, notify.Clients{
		DB:      dbClient,
		Queue:   jobQueue,
		Metrics: deliveryMetrics,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notify service", err)
		os.Exit(1)
	}

	usersService, err := users.NewService(users.NewRepository(dbClient.DB()), notifyService, logg)
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	var signature *twilio.SignatureValidator
	if cfg.Notify.VerifySignature {
		signature = twilio.NewSignatureValidator(cfg.Twilio.AuthToken)
	}

	addr := ":" + env.Lookup(cfg.App.Port, "PORT")
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"instance":    instance.GetID("api"),
		"update_path": cfg.Notify.NormalizedUpdatePath(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:        dbClient,
			Redis:     redisClient,
			Notify:    notifyService,
			Users:     usersService,
			Signature: signature,
			Metrics:   deliveryMetrics,
			Gatherer:  registry,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "api server shutdown failed", err)
		}
		logg.Info(shutdownCtx, "api server stopped")
	}
}
