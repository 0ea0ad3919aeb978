package config

import (
	"context"
	"fmt"
	"time"
)

// Defaults applied when a setting is absent
const (
	DefaultPort       = 8080
	DefaultLogLevel   = "info"
	DefaultMaxDepth   = 5
	DefaultCacheTTL   = 5 * time.Minute
	DefaultSQLitePath = "taxonomy.db"
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// AppConfig holds service-level settings
type AppConfig struct {
	Environment Environment
	Port        int
	LogLevel    string
	// MaxDepth bounds the taxonomy depth at insert time; 0 disables the bound
	MaxDepth  int
	CacheTTL  time.Duration
	CacheWarm bool
	// ReloadInterval re-reads the taxonomy from the database; 0 disables it
	ReloadInterval time.Duration
	DBDriver       string
	SQLitePath     string
}

// Validate checks if the application configuration is valid
func (c *AppConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "PORT", Message: "port must be between 1 and 65535"}
	}
	if !validLogLevels[c.LogLevel] {
		return &ValidationError{Field: "LOG_LEVEL", Message: "log level must be one of debug, info, warn, error"}
	}
	if c.MaxDepth < 0 {
		return &ValidationError{Field: "TAXONOMY_MAX_DEPTH", Message: "max depth cannot be negative"}
	}
	if c.CacheTTL <= 0 {
		return &ValidationError{Field: "CACHE_TTL_SECONDS", Message: "cache TTL must be positive"}
	}
	if c.ReloadInterval < 0 {
		return &ValidationError{Field: "TAXONOMY_RELOAD_SECONDS", Message: "reload interval cannot be negative"}
	}
	switch c.DBDriver {
	case DriverPostgres:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return &ValidationError{Field: "SQLITE_PATH", Message: "sqlite path cannot be empty"}
		}
	default:
		return &ValidationError{Field: "DB_DRIVER", Message: "driver must be postgres or sqlite"}
	}
	return nil
}

// GetAppConfig reads the application configuration, applying defaults for
// unset keys. Values that are set but malformed are reported as errors.
func GetAppConfig(ctx context.Context, provider Provider) (*AppConfig, error) {
	cfg := &AppConfig{
		Environment: provider.GetEnvironment(),
		Port:        DefaultPort,
		LogLevel:    DefaultLogLevel,
		MaxDepth:    DefaultMaxDepth,
		CacheTTL:    DefaultCacheTTL,
		DBDriver:    DriverPostgres,
		SQLitePath:  DefaultSQLitePath,
	}

	if value, ok, err := optionalInt(ctx, provider, "PORT"); err != nil {
		return nil, err
	} else if ok {
		cfg.Port = value
	}
	if value, ok, err := optionalInt(ctx, provider, "TAXONOMY_MAX_DEPTH"); err != nil {
		return nil, err
	} else if ok {
		cfg.MaxDepth = value
	}
	if value, ok, err := optionalInt(ctx, provider, "CACHE_TTL_SECONDS"); err != nil {
		return nil, err
	} else if ok {
		cfg.CacheTTL = time.Duration(value) * time.Second
	}
	if value, ok, err := optionalInt(ctx, provider, "TAXONOMY_RELOAD_SECONDS"); err != nil {
		return nil, err
	} else if ok {
		cfg.ReloadInterval = time.Duration(value) * time.Second
	}
	if value, err := provider.GetString(ctx, "CACHE_WARM"); err == nil {
		warm, err := provider.GetBool(ctx, "CACHE_WARM")
		if err != nil {
			return nil, fmt.Errorf("failed to parse CACHE_WARM %q: %w", value, err)
		}
		cfg.CacheWarm = warm
	}
	if value, err := provider.GetString(ctx, "LOG_LEVEL"); err == nil {
		cfg.LogLevel = value
	}
	if value, err := provider.GetString(ctx, "DB_DRIVER"); err == nil {
		cfg.DBDriver = value
	}
	if value, err := provider.GetString(ctx, "SQLITE_PATH"); err == nil {
		cfg.SQLitePath = value
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid application configuration: %w", err)
	}
	return cfg, nil
}

// optionalInt distinguishes an unset key from a malformed one
func optionalInt(ctx context.Context, provider Provider, key string) (int, bool, error) {
	if _, err := provider.GetString(ctx, key); err != nil {
		return 0, false, nil
	}
	value, err := provider.GetInt(ctx, key)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return value, true, nil
}
