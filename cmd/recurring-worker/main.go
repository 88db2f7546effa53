package main

import (
	"context"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	applog "fintrack/internal/log"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
)

const recurringJob = "recurring-templates"

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentRecurring)

	logger.Info("Starting recurring-worker")

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(appCtx, bcfg)
	if err != nil {
		logger.Error("Failed to create backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if res.Publisher == nil {
		logger.Info("AMQP disabled - projections will not refresh until the next change")
	}

	checker, err := services.CheckerFor(cfg.DuenessMode)
	if err != nil {
		logger.Error("Invalid dueness mode", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(appCtx, cfg.Location())
	rates, err := cli.NewRates(appCtx, cfg, sched)
	if err != nil {
		logger.Error("Failed to set up currency rates", "error", err)
		os.Exit(1)
	}

	records := services.NewRecordService(res.Store, res.Publisher)
	processor := services.NewRecurringProcessor(records, rates, checker)
	clock := bcfg.Clock

	err = sched.Add(recurringJob, cfg.RecurringSchedule, func(ctx context.Context) error {
		now := clock.Now()
		count, err := processor.ProcessOwners(ctx, cfg.RecurringOwners, now)
		if err != nil {
			return err
		}
		logger.Info("Recurring templates processed",
			"records_created", count,
			"owners", len(cfg.RecurringOwners),
			"date", now.Format("2006-01-02"))
		return nil
	})
	if err != nil {
		logger.Error("Failed to schedule recurring processing", "error", err, "schedule", cfg.RecurringSchedule)
		os.Exit(1)
	}

	logger.Info("Recurring processor configured",
		"schedule", cfg.RecurringSchedule,
		"timezone", cfg.Timezone,
		"dueness", cfg.DuenessMode,
		"owners", cfg.RecurringOwners)

	// Catch up on anything that came due while the worker was down.
	if err := sched.RunNow(recurringJob); err != nil {
		logger.Error("Initial processing failed", "error", err)
	}
	sched.Start()

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := sched.Stop(ctx); err != nil {
			logger.Warn("Scheduler stop timed out", "error", err)
		}
		appCancel()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})
	cli.WaitForShutdown(ctx, done)
}
