package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultDSN         = "host=localhost user=postgres password=postgres dbname=weighbridge port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:5173"
)

type Config struct {
	HTTPPort       string
	DatabaseDriver string
	DatabaseDSN    string
	JWTSecret      string
	CORSOrigins    string
	LogLevel       string
	MetricsEnabled bool

	Scale     ScaleConfig
	Reporting ReportingConfig
	Notify    NotifyConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
}

// ScaleConfig points at the weighbridge indicator's WebSocket feed.
type ScaleConfig struct {
	URL          string
	ReconnectMin time.Duration
	ReconnectMax time.Duration
	StaleAfter   time.Duration
}

type ReportingConfig struct {
	CronSchedule string
	Timezone     string
}

// NotifyConfig is the optional webhook that receives daily closings.
type NotifyConfig struct {
	WebhookURL string
	Token      string
}

type MongoDBConfig struct {
	URI    string
	DBName string
}

type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Load reads environment variables, optionally seeded from envFile (or .env when empty).
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := &Config{
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		DatabaseDriver: getEnv("DATABASE_DRIVER", DriverPostgres),
		DatabaseDSN:    getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		CORSOrigins:    getEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		Scale: ScaleConfig{
			URL: os.Getenv("SCALE_WS_URL"),
		},
		Reporting: ReportingConfig{
			CronSchedule: getEnv("REPORT_CRON_SCHEDULE", "55 23 * * *"),
			Timezone:     getEnv("TIMEZONE", "Asia/Karachi"),
		},
		Notify: NotifyConfig{
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
			Token:      os.Getenv("NOTIFY_WEBHOOK_TOKEN"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getEnv("MONGODB_DB_NAME", "weighbridge"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_ID"),
		},
	}

	var err error
	if cfg.MetricsEnabled, err = getBool("METRICS_ENABLED", false); err != nil {
		return nil, err
	}
	if cfg.Scale.ReconnectMin, err = getDuration("SCALE_RECONNECT_MIN", time.Second); err != nil {
		return nil, err
	}
	if cfg.Scale.ReconnectMax, err = getDuration("SCALE_RECONNECT_MAX", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.Scale.StaleAfter, err = getDuration("SCALE_STALE_AFTER", 5*time.Second); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.HTTPPort == "" {
		return errors.New("HTTP_PORT must be provided")
	}
	if _, err := strconv.Atoi(c.HTTPPort); err != nil {
		return fmt.Errorf("HTTP_PORT must be numeric, got %q", c.HTTPPort)
	}

	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DATABASE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.DatabaseDriver)
	}
	if c.DatabaseDSN == "" {
		return errors.New("DATABASE_DSN must be provided")
	}

	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be provided")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}

	if c.Scale.ReconnectMin <= 0 || c.Scale.ReconnectMax < c.Scale.ReconnectMin {
		return errors.New("SCALE_RECONNECT_MIN must be positive and not exceed SCALE_RECONNECT_MAX")
	}
	if c.Scale.StaleAfter <= 0 {
		return errors.New("SCALE_STALE_AFTER must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_ID must be set together")
	}
	return nil
}

// Warnings lists settings that work but should not reach production.
func (c *Config) Warnings() []string {
	var warns []string
	if c.DatabaseDriver == DriverPostgres && c.DatabaseDSN == defaultDSN {
		warns = append(warns, "DATABASE_DSN uses the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == defaultCORSOrigins {
		warns = append(warns, "CORS_ALLOWED_ORIGINS uses the default value, set your own domain for production")
	}
	if c.Scale.URL == "" {
		warns = append(warns, "SCALE_WS_URL is not set, live weight is disabled")
	}
	return warns
}

// Location is the business timezone used for day boundaries.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
