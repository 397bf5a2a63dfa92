// Package container provides dependency injection and lifecycle management
// for the expense approval service.
package container

import (
	"fmt"
	"time"
)

// Config holds all configuration for the Container.
type Config struct {
	Database DatabaseConfig
	Lark     LarkConfig
	Currency CurrencyConfig
	Storage  StorageConfig
	Report   ReportConfig
	Server   ServerConfig
	Worker   WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// LarkConfig holds Lark API settings. Empty credentials select the log-only notifier.
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// CurrencyConfig is the static rate table.
type CurrencyConfig struct {
	// Base is the currency every rate is expressed against
	Base string

	// Rates maps ISO 4217 codes to units per one Base
	Rates map[string]string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// ArchiveDir is the base directory for archived ledgers
	ArchiveDir string
}

// ReportConfig holds ledger export settings.
type ReportConfig struct {
	SheetName string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	ReminderEnabled    bool
	ReminderInterval   time.Duration
	ReminderStaleAfter time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/expenseflow.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Currency: CurrencyConfig{
			Base: "USD",
			Rates: map[string]string{
				"EUR": "0.92",
				"GBP": "0.79",
				"INR": "83.10",
			},
		},
		Storage: StorageConfig{
			ArchiveDir: "data/archive",
		},
		Report: ReportConfig{
			SheetName: "Ledger",
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Worker: WorkerConfig{
			ReminderEnabled:    true,
			ReminderInterval:   time.Hour,
			ReminderStaleAfter: 48 * time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Currency.Base == "" {
		return fmt.Errorf("currency.base is required")
	}
	if c.Storage.ArchiveDir == "" {
		return fmt.Errorf("storage.archive_dir is required")
	}
	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}
	if c.Worker.ReminderEnabled {
		if c.Worker.ReminderInterval <= 0 {
			return fmt.Errorf("reminder.interval must be positive")
		}
		if c.Worker.ReminderStaleAfter <= 0 {
			return fmt.Errorf("reminder.stale_after must be positive")
		}
	}
	return nil
}
