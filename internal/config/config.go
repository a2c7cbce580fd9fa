// Package config provides configuration management for the protocol server.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/pbm-protocol-server/internal/domain"
)

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	config *domain.Config
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	m := &Manager{}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	// Set configuration file name and paths
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/pbm-protocol-server/")

	// Set environment variable prefix and enable automatic env binding
	viper.SetEnvPrefix("PBM")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	m.setDefaults()

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	// Unmarshal configuration into struct
	config := &domain.Config{}
	if err := viper.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}

	m.config = config
	return nil
}

// setDefaults sets default configuration values
func (m *Manager) setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// Store defaults: embedded SQLite unless a Postgres backend is selected
	viper.SetDefault("store.backend", "sqlite")
	viper.SetDefault("store.breaker_enabled", true)
	viper.SetDefault("store.sqlite.path", "./data/plans.db")
	viper.SetDefault("store.postgres.host", "localhost")
	viper.SetDefault("store.postgres.port", 5432)
	viper.SetDefault("store.postgres.database", "pbm_protocols")
	viper.SetDefault("store.postgres.username", "postgres")
	viper.SetDefault("store.postgres.password", "")
	viper.SetDefault("store.postgres.ssl_mode", "disable")
	viper.SetDefault("store.postgres.max_conns", 25)
	viper.SetDefault("store.postgres.min_conns", 5)
	viper.SetDefault("store.postgres.conn_max_lifetime", "5m")
	viper.SetDefault("store.postgres.conn_max_idle_time", "1m")
	viper.SetDefault("store.postgres.migrations_path", "./internal/database/migrations")

	// Catalog defaults: empty path means the embedded artifact
	viper.SetDefault("catalog.path", "")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")

	// Rate limit defaults
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests_per_second", 10)
	viper.SetDefault("rate_limit.burst", 20)
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetStoreConfig returns plan store configuration
func (m *Manager) GetStoreConfig() *domain.StoreConfig {
	return &m.config.Store
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate store configuration
	switch config.Store.Backend {
	case "sqlite":
		if config.Store.SQLite.Path == "" {
			return fmt.Errorf("sqlite store path is required")
		}
	case "postgres":
		if config.Store.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}
		if config.Store.Postgres.Database == "" {
			return fmt.Errorf("postgres database name is required")
		}
		if config.Store.Postgres.Username == "" {
			return fmt.Errorf("postgres username is required")
		}
	default:
		return fmt.Errorf("invalid store backend: %s", config.Store.Backend)
	}

	// Validate rate limit configuration
	if config.RateLimit.Enabled {
		if config.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("invalid rate limit: %g requests/second", config.RateLimit.RequestsPerSecond)
		}
		if config.RateLimit.Burst < 1 {
			return fmt.Errorf("invalid rate limit burst: %d", config.RateLimit.Burst)
		}
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// GetPostgresConnectionString returns a formatted Postgres connection string
func (m *Manager) GetPostgresConnectionString() string {
	pg := m.config.Store.Postgres
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		pg.Host, pg.Port, pg.Username, pg.Password, pg.Database, pg.SSLMode)
}

// GetPostgresURL returns the Postgres URL used by the migration runner
func (m *Manager) GetPostgresURL() string {
	pg := m.config.Store.Postgres
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		pg.Username, pg.Password, pg.Host, pg.Port, pg.Database, pg.SSLMode)
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(viper.GetString("environment")) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(viper.GetString("environment"))
	return env == "development" || env == "dev" || env == ""
}
