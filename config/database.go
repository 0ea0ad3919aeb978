package config

import (
	"context"
	"fmt"
	"net"
	"regexp"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var dbNamePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN returns the lib/pq connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Validate checks if the database configuration is valid
func (c *DatabaseConfig) Validate(env Environment) error {
	if c.Host == "" {
		return &ValidationError{Field: "Host", Message: "host cannot be empty"}
	}
	if host := net.ParseIP(c.Host); host == nil {
		if _, err := net.LookupHost(c.Host); err != nil {
			return &ValidationError{Field: "Host", Message: "invalid hostname or IP address"}
		}
	}

	if c.Port <= 0 || c.Port > 65535 {
		return &ValidationError{Field: "Port", Message: "port must be between 1 and 65535"}
	}
	if c.User == "" {
		return &ValidationError{Field: "User", Message: "user cannot be empty"}
	}
	if c.Password == "" {
		return &ValidationError{Field: "Password", Message: "password cannot be empty"}
	}
	if env == Production {
		if err := validateProductionPassword(c.Password); err != nil {
			return err
		}
	}

	if c.DBName == "" {
		return &ValidationError{Field: "DBName", Message: "database name cannot be empty"}
	}
	if !dbNamePattern.MatchString(c.DBName) {
		return &ValidationError{Field: "DBName", Message: "database name must start with a letter and contain only letters, numbers, and underscores"}
	}

	if !validSSLModes[c.SSLMode] {
		return &ValidationError{Field: "SSLMode", Message: "invalid SSL mode"}
	}
	if env == Production && c.SSLMode == "disable" {
		return &ValidationError{Field: "SSLMode", Message: "SSL cannot be disabled in production"}
	}
	return nil
}

// GetDatabaseConfig retrieves database configuration using the provided config provider
func GetDatabaseConfig(ctx context.Context, provider Provider) (*DatabaseConfig, error) {
	host, err := provider.GetString(ctx, "DB_HOST")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_HOST: %w", err)
	}

	port, err := provider.GetInt(ctx, "DB_PORT")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PORT: %w", err)
	}

	user, err := provider.GetString(ctx, "DB_USER")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_USER: %w", err)
	}

	password, err := provider.GetSecret(ctx, "DB_PASSWORD")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_PASSWORD: %w", err)
	}

	dbname, err := provider.GetString(ctx, "DB_NAME")
	if err != nil {
		return nil, fmt.Errorf("failed to get DB_NAME: %w", err)
	}

	sslmode, err := provider.GetString(ctx, "DB_SSLMODE")
	if err != nil {
		sslmode = "disable"
	}

	cfg := &DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     user,
		Password: password,
		DBName:   dbname,
		SSLMode:  sslmode,
	}
	if err := cfg.Validate(provider.GetEnvironment()); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}
	return cfg, nil
}
