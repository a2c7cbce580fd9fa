// This file contains the lightweight environment-only configuration used by
// the relabel maintenance tool, which runs outside the server's config file
// search paths.
package config

import (
	"os"
	"path/filepath"
)

// LiteConfig is a simplified configuration for one-shot maintenance runs.
// It reads only environment variables and needs no config file.
type LiteConfig struct {
	// Store selection, mirroring the server's store section
	StoreBackend string // "sqlite" or "postgres"
	SQLitePath   string // SQLite database file
	PostgresURL  string // Postgres connection URL

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	return &LiteConfig{
		StoreBackend: "sqlite",
		SQLitePath:   filepath.Join(homeDir, ".pbm-protocol-server", "plans.db"),
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("PBM_STORE_BACKEND"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("PBM_STORE_SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := os.Getenv("PBM_STORE_POSTGRES_URL"); v != "" {
		cfg.PostgresURL = v
	}
	if v := os.Getenv("PBM_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PBM_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}
