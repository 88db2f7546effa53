package main

import (
	"context"
	"errors"
	"os"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/engine"
	applog "fintrack/internal/log"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
	"fintrack/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting projection-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required by the projection worker")
		os.Exit(1)
	}

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	// The worker only reads records; change events come from the consumer
	// below, so the store is opened without a publisher.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	bcfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.Logger).CreateBackend(appCtx, bcfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	clock := bcfg.Clock

	sched := scheduler.New(appCtx, cfg.Location())
	rates, err := cli.NewRates(appCtx, cfg, sched)
	if err != nil {
		logger.Error("Failed to set up currency rates", "error", err)
		os.Exit(1)
	}
	sched.Start()

	writer, err := cli.NewProjectionWriter(appCtx, cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets exporter", "error", err)
		os.Exit(1)
	}
	if writer == nil {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	// Every message reloads the owner, so the cache only needs to absorb
	// bursts of messages for the same owner.
	ledgers := cache.NewLRUCache[engine.Ledger](cfg.CacheSize, cfg.CacheTTL, clock)
	projections := services.NewProjectionService(res.Store, engine.NewProjector(rates, clock), ledgers)
	refresher := services.NewRefresher(projections, res.Runs, writer, clock, cfg.ProjectionMonths)
	w := worker.NewProjectionWorker(refresher)

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	logger.Info("Performing startup refresh...")
	w.StartupRefresh(appCtx, cfg.RecurringOwners)

	consumeDone := make(chan struct{})
	go func() {
		defer close(consumeDone)
		if err := client.ConsumeRecordChanged(appCtx, w.HandleRecordChanged); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
	}()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		appCancel()
		select {
		case <-consumeDone:
		case <-ctx.Done():
		}
		_ = sched.Stop(ctx)
		if err := client.Close(); err != nil {
			logger.Error("AMQP close error", "error", err)
		}
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
