package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"fintrack/internal/currency"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int

	// Logging
	LogLevel string

	// Database
	SQLiteDBPath string
	SeedFile     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Owners
	DefaultOwnerID  string
	RecurringOwners []string

	// Currency
	BaseCurrency         string
	CurrencyRates        string
	RatesSource          string
	ECBRatesURL          string
	RatesRefreshSchedule string

	// Scheduling
	Timezone          string
	RecurringSchedule string
	DuenessMode       string

	// Projection
	ProjectionMonths int
	CacheSize        int
	CacheTTL         time.Duration

	// Refresh processor, used when no broker is configured
	RefreshInterval   time.Duration
	RefreshBatchSize  int
	RefreshMaxRetries int

	// Google Sheets export
	GoogleSpreadsheetID      string
	ProjectionSheetName      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	GoogleOAuthClientFile    string
	GoogleOAuthClientJSON    string
	GoogleOAuthTokenFile     string

	// Backend selection
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changed"),

		DefaultOwnerID: getEnv("DEFAULT_OWNER_ID", "default"),

		BaseCurrency:         strings.ToUpper(getEnv("BASE_CURRENCY", "EUR")),
		CurrencyRates:        getEnv("CURRENCY_RATES", ""),
		RatesSource:          getEnv("RATES_SOURCE", "static"),
		ECBRatesURL:          getEnv("ECB_RATES_URL", currency.DefaultECBURL),
		RatesRefreshSchedule: getEnv("RATES_REFRESH_SCHEDULE", "30 16 * * 1-5"),

		Timezone:          getEnv("TIMEZONE", "UTC"),
		RecurringSchedule: getEnv("RECURRING_SCHEDULE", "0 6 * * *"),
		DuenessMode:       getEnv("DUENESS_MODE", "exact"),

		ProjectionMonths: getEnvInt("PROJECTION_MONTHS", 12),
		CacheSize:        getEnvInt("CACHE_SIZE", 100),
		CacheTTL:         getEnvDuration("CACHE_TTL", 5*time.Minute),

		RefreshInterval:   getEnvDuration("REFRESH_INTERVAL", 10*time.Second),
		RefreshBatchSize:  getEnvInt("REFRESH_BATCH_SIZE", 10),
		RefreshMaxRetries: getEnvInt("REFRESH_MAX_RETRIES", 3),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		ProjectionSheetName:      getEnv("PROJECTION_SHEET_NAME", "Projections"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		GoogleOAuthClientFile:    getEnv("GOOGLE_OAUTH_CLIENT_FILE", ""),
		GoogleOAuthClientJSON:    getEnv("GOOGLE_OAUTH_CLIENT_JSON", ""),
		GoogleOAuthTokenFile:     getEnv("GOOGLE_OAUTH_TOKEN_FILE", ""),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}
	cfg.RecurringOwners = getEnvList("RECURRING_OWNERS", []string{cfg.DefaultOwnerID})

	return cfg
}

// Location resolves Timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// RateTable is the configured static table. Invalid entries have already
// been reported by Validate.
func (c *Config) RateTable() currency.Table {
	rates, _ := currency.ParseRates(c.CurrencyRates)
	return currency.Table{Base: c.BaseCurrency, Rates: rates}
}

// SheetsEnabled reports whether projections are exported.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "memory" && c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.DefaultOwnerID == "" {
		errors = append(errors, "default owner id cannot be empty")
	}

	// Currency
	if len(c.BaseCurrency) != 3 {
		errors = append(errors, fmt.Sprintf("invalid base currency '%s': must be a 3-letter code", c.BaseCurrency))
	}
	if _, err := currency.ParseRates(c.CurrencyRates); err != nil {
		errors = append(errors, fmt.Sprintf("invalid currency rates: %v", err))
	}
	switch c.RatesSource {
	case "static":
	case "ecb":
		if _, err := url.ParseRequestURI(c.ECBRatesURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid ECB rates URL '%s': %v", c.ECBRatesURL, err))
		}
		if _, err := cron.ParseStandard(c.RatesRefreshSchedule); err != nil {
			errors = append(errors, fmt.Sprintf("invalid rates refresh schedule '%s': %v", c.RatesRefreshSchedule, err))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid rates source '%s': must be one of [static ecb]", c.RatesSource))
	}

	// Scheduling
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}
	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid recurring schedule '%s': %v", c.RecurringSchedule, err))
	}
	if c.DuenessMode != "exact" && c.DuenessMode != "catch_up" {
		errors = append(errors, fmt.Sprintf("invalid dueness mode '%s': must be one of [exact catch_up]", c.DuenessMode))
	}

	// Projection
	if c.ProjectionMonths < 1 || c.ProjectionMonths > 120 {
		errors = append(errors, fmt.Sprintf("invalid projection months %d: must be between 1 and 120", c.ProjectionMonths))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	// Validate refresh processor configuration
	if c.RefreshBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh batch size %d: must be at least 1", c.RefreshBatchSize))
	} else if c.RefreshBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid refresh batch size %d: must be at most 1000", c.RefreshBatchSize))
	}
	if c.RefreshInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at least 1 second", c.RefreshInterval))
	} else if c.RefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid refresh interval %v: must be at most 24 hours", c.RefreshInterval))
	}
	if c.RefreshMaxRetries < 1 {
		errors = append(errors, fmt.Sprintf("invalid refresh max retries %d: must be at least 1", c.RefreshMaxRetries))
	}

	// Google Sheets export is optional; when enabled it needs credentials
	if c.SheetsEnabled() {
		hasServiceAccount := c.GoogleServiceAccountJSON != "" || c.GoogleServiceAccountFile != ""
		hasClient := c.GoogleOAuthClientJSON != "" || c.GoogleOAuthClientFile != ""
		if !hasServiceAccount && !hasClient {
			errors = append(errors, "Google Sheets export needs GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")
		}
		if !hasServiceAccount && hasClient && c.GoogleOAuthTokenFile == "" {
			errors = append(errors, "GOOGLE_OAUTH_TOKEN_FILE must be provided when using an OAuth client")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
		if c.GoogleOAuthClientFile != "" {
			if _, err := os.Stat(c.GoogleOAuthClientFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google OAuth client file does not exist: %s", c.GoogleOAuthClientFile))
			}
		}
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
