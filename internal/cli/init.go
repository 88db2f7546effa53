// Package cli provides common CLI initialization utilities.
// This package consolidates repeated initialization patterns across
// cmd/fintrack, cmd/projection-worker and cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"fintrack/internal/config"
	"fintrack/internal/currency"
	applog "fintrack/internal/log"
	"fintrack/internal/scheduler"
	"fintrack/internal/sheets"
	"fintrack/internal/sheets/google"
)

// RatesJob is the scheduler job name of the ECB rate refresh.
const RatesJob = "currency-rates"

// SetupLogger initializes structured logging at level and installs it as
// the default logger. Unknown levels fall back to info.
func SetupLogger(level string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	logger := applog.New(applog.Config{
		Level:     lvl,
		Component: applog.ComponentApp,
		Handler:   slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}),
	})
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info logging", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// NewRates builds the normalizer from the static table. With the ecb source
// it also fetches live rates once and registers a refresh job on sched.
// A failed first fetch keeps the static table.
func NewRates(ctx context.Context, cfg *config.Config, sched *scheduler.Scheduler) (*currency.Normalizer, error) {
	static := cfg.RateTable()
	rates := currency.NewNormalizer(static)
	if cfg.RatesSource != "ecb" {
		return rates, nil
	}

	refresher := currency.NewRefresher(currency.NewECBSource(cfg.ECBRatesURL, cfg.BaseCurrency), rates, static)
	_ = refresher.Refresh(ctx)
	if sched == nil {
		return rates, nil
	}
	if err := sched.Add(RatesJob, cfg.RatesRefreshSchedule, refresher.Refresh); err != nil {
		return nil, fmt.Errorf("schedule rate refresh: %w", err)
	}
	return rates, nil
}

// NewProjectionWriter returns the Google Sheets exporter, or nil when no
// spreadsheet is configured.
func NewProjectionWriter(ctx context.Context, cfg *config.Config) (sheets.ProjectionWriter, error) {
	if !cfg.SheetsEnabled() {
		return nil, nil
	}
	clientJSON := cfg.GoogleOAuthClientJSON
	if clientJSON == "" && cfg.GoogleOAuthClientFile != "" {
		b, err := os.ReadFile(cfg.GoogleOAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		clientJSON = string(b)
	}
	exporter, err := google.New(ctx, google.Options{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetName:          cfg.ProjectionSheetName,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
		OAuthClientJSON:    clientJSON,
		OAuthTokenFile:     cfg.GoogleOAuthTokenFile,
	})
	if err != nil {
		return nil, err
	}
	return exporter, nil
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that is closed once cleanup has finished.
func GracefulShutdown(logger *applog.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		finished := make(chan struct{})
		go func() {
			if cleanup != nil {
				cleanup(shutdownCtx)
			}
			close(finished)
		}()

		select {
		case <-shutdownCtx.Done():
			logger.Warn("Shutdown timeout reached")
		case <-finished:
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
