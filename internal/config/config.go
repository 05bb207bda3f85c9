package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve in scratch containers

	"github.com/robfig/cron/v3"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port            string
	ShutdownTimeout time.Duration
	RateLimit       int // requests per minute per client, 0 disables

	// Storage configuration
	DataBackend  string
	SQLiteDBPath string
	DataDir      string

	// AMQP configuration
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Recurring scheduler
	RecurringSchedule    string
	RecurringAutoConfirm bool
	Timezone             string

	// Dashboard cache
	CacheTTL  time.Duration
	CacheSize int64

	// Authentication, disabled when AuthUsername is empty
	AuthUsername     string
	AuthPasswordHash string
	AuthSecret       string
	AuthTokenTTL     time.Duration

	// Google Sheets export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Logging
	LogLevel  string
	LogFormat string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		RateLimit:       getEnvInt("RATE_LIMIT", 120),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/fintrack.db"),
		DataDir:      getEnv("DATA_DIR", "./data"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "fintrack"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "fintrack_export"),

		RecurringSchedule:    getEnv("RECURRING_SCHEDULE", "0 6 * * *"),
		RecurringAutoConfirm: getEnvBool("RECURRING_AUTO_CONFIRM", false),
		Timezone:             getEnv("TIMEZONE", "UTC"),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize: int64(getEnvInt("CACHE_SIZE", 128)),

		AuthUsername:     getEnv("AUTH_USERNAME", ""),
		AuthPasswordHash: getEnv("AUTH_PASSWORD_HASH", ""),
		AuthSecret:       getEnv("AUTH_SECRET", ""),
		AuthTokenTTL:     getEnvDuration("AUTH_TOKEN_TTL", 24*time.Hour),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Transactions"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port: %s (must be 1-65535)", c.Port))
	}

	// Validate data backend
	switch c.DataBackend {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLITE_DB_PATH is required for sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite directory %s: %v", dir, err))
			}
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend: %s (must be 'memory' or 'sqlite')", c.DataBackend))
	}

	// AMQP is optional; when configured it must be usable
	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL: %v", err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errors = append(errors, "AMQP URL must use amqp:// or amqps:// scheme")
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name is required")
		}
	}

	if _, err := cron.ParseStandard(c.RecurringSchedule); err != nil {
		errors = append(errors, fmt.Sprintf("invalid RECURRING_SCHEDULE %q: %v", c.RecurringSchedule, err))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid TIMEZONE %q: %v", c.Timezone, err))
	}

	if c.CacheTTL < 0 {
		errors = append(errors, "CACHE_TTL must not be negative")
	}
	if c.CacheSize < 1 {
		errors = append(errors, "CACHE_SIZE must be positive")
	}
	if c.RateLimit < 0 {
		errors = append(errors, "RATE_LIMIT must not be negative")
	}

	if c.AuthUsername != "" {
		if c.AuthPasswordHash == "" {
			errors = append(errors, "AUTH_PASSWORD_HASH is required when AUTH_USERNAME is set")
		}
		if len(c.AuthSecret) < 32 {
			errors = append(errors, "AUTH_SECRET must be at least 32 bytes when AUTH_USERNAME is set")
		}
		if c.AuthTokenTTL <= 0 {
			errors = append(errors, "AUTH_TOKEN_TTL must be positive")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level: %s", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format: %s (must be 'text' or 'json')", c.LogFormat))
	}

	return joinErrors(errors)
}

// ValidateExport checks the settings needed by the sheets export worker.
func (c *Config) ValidateExport() error {
	var errors []string

	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the export worker")
	}
	if c.AMQPQueue == "" {
		errors = append(errors, "AMQP queue name is required for the export worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the export worker")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		errors = append(errors, "Google credentials are required (GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); err != nil {
			errors = append(errors, fmt.Sprintf("service account file not accessible: %s", c.GoogleServiceAccountFile))
		}
	}

	return joinErrors(errors)
}

// Location returns the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func joinErrors(errors []string) error {
	if len(errors) == 0 {
		return nil
	}
	msg := "configuration validation failed:"
	for _, err := range errors {
		msg += "\n- " + err
	}
	return fmt.Errorf("%s", msg)
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
