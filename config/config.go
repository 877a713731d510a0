// Package config loads the server configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ledger    LedgerConfig
	Reporting ReportingConfig
	LogLevel  string
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

// DatabaseConfig selects the store backend. Driver is sqlite3, mysql or memory.
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// LedgerConfig holds coordinator and audit settings.
type LedgerConfig struct {
	TxTimeout     time.Duration
	AuditSchedule string // cron spec; empty disables the scheduled audit
}

// ReportingConfig holds the timezone used for daily windows and date grouping.
type ReportingConfig struct {
	Timezone string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance. Variables already set in the environment
// win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// A missing .env is fine when everything comes from the environment.
		_ = godotenv.Load()
	}

	timeout, err := time.ParseDuration(getenvWithDefault("TX_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid TX_TIMEOUT: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("PORT", "8080"),
			CORSOrigins: splitList(getenvWithDefault("CORS_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			Driver: getenvWithDefault("DB_DRIVER", "sqlite3"),
			DSN:    getenvWithDefault("DB_DSN", "stock.db"),
		},
		Ledger: LedgerConfig{
			TxTimeout:     timeout,
			AuditSchedule: getenvOrEmpty("AUDIT_SCHEDULE", "@every 1h"),
		},
		Reporting: ReportingConfig{
			Timezone: getenvWithDefault("REPORT_TIMEZONE", "UTC"),
		},
		LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Server.Port == "" {
		return errors.New("PORT must be provided")
	}
	switch c.Database.Driver {
	case "sqlite3", "mysql", "memory":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3, mysql or memory, got %q", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && c.Database.DSN == "" {
		return errors.New("DB_DSN must be provided")
	}
	if c.Ledger.TxTimeout <= 0 {
		return errors.New("TX_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the reporting timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Reporting.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", c.Reporting.Timezone, err)
	}
	return loc, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getenvOrEmpty is like getenvWithDefault but keeps an explicitly empty value.
func getenvOrEmpty(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
