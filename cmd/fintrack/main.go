package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cache"
	"fintrack/internal/cli"
	"fintrack/internal/engine"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/scheduler"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel)

	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(appCtx, bcfg)
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

	caches := cache.NewManager()
	ledgers := cache.NewLRUCache[engine.Ledger](cfg.CacheSize, cfg.CacheTTL, clock)
	caches.Register(ledgers)
	caches.StartCleanup(cfg.CacheTTL)

	records := services.NewRecordService(res.Store, res.Publisher)
	projections := services.NewProjectionService(res.Store, engine.NewProjector(rates, clock), ledgers)
	records.OnChange(projections.Invalidate)

	// Without a broker nobody else refreshes exports, so do it in process.
	var refreshes *services.RefreshProcessor
	if res.Publisher == nil {
		writer, err := cli.NewProjectionWriter(appCtx, cfg)
		if err != nil {
			logger.Warn("Projection export disabled", "error", err)
		}
		refresher := services.NewRefresher(projections, res.Runs, writer, clock, cfg.ProjectionMonths)
		refreshes = services.NewRefreshProcessor(func(ctx context.Context, owner string) error {
			_, err := refresher.Refresh(ctx, owner)
			return err
		}, services.RefreshProcessorConfig{
			PollInterval: cfg.RefreshInterval,
			BatchSize:    cfg.RefreshBatchSize,
			MaxRetries:   cfg.RefreshMaxRetries,
		})
		records.OnChange(refreshes.Mark)
		if err := refreshes.Start(appCtx); err != nil {
			logger.Error("Failed to start refresh processor", "error", err)
			os.Exit(1)
		}
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Records:            records,
		Projections:        projections,
		Goals:              services.NewGoalService(records),
		Savings:            services.NewSavingsService(records),
		Clock:              clock,
		Runs:               res.Runs,
		DefaultOwner:       cfg.DefaultOwnerID,
		NetWorthMonths:     cfg.ProjectionMonths,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger,
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if refreshes != nil {
			_ = refreshes.Stop(ctx)
		}
		_ = sched.Stop(ctx)
		caches.Stop()
		appCancel()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"base_currency", cfg.BaseCurrency,
		"broker", res.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
