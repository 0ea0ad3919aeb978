package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
)

// Environment represents the application environment
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Provider defines the interface for configuration management
type Provider interface {
	// GetString retrieves a string configuration value
	GetString(ctx context.Context, key string) (string, error)
	// GetInt retrieves an integer configuration value
	GetInt(ctx context.Context, key string) (int, error)
	// GetBool retrieves a boolean configuration value
	GetBool(ctx context.Context, key string) (bool, error)
	// GetSecret retrieves a secret value
	GetSecret(ctx context.Context, key string) (string, error)
	// GetEnvironment returns the current environment
	GetEnvironment() Environment
}

// currentEnvironment reads APP_ENV, defaulting to development
func currentEnvironment() Environment {
	env := os.Getenv("APP_ENV")
	if env == "" {
		return Development
	}
	return Environment(env)
}

// EnvProvider implements Provider using environment variables
type EnvProvider struct {
	prefix      string
	environment Environment
}

// NewEnvProvider creates a new environment-based configuration provider
func NewEnvProvider(prefix string) Provider {
	return &EnvProvider{
		prefix:      prefix,
		environment: currentEnvironment(),
	}
}

// GetEnvironment returns the current environment
func (p *EnvProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from environment variables
func (p *EnvProvider) GetString(ctx context.Context, key string) (string, error) {
	value := os.Getenv(p.prefix + key)
	if value == "" {
		return "", fmt.Errorf("environment variable %s%s not set", p.prefix, key)
	}
	return value, nil
}

// GetInt retrieves an integer configuration value from environment variables
func (p *EnvProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// GetBool retrieves a boolean configuration value from environment variables
func (p *EnvProvider) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

// GetSecret retrieves a secret value from environment variables
func (p *EnvProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}

// NewProvider picks the Secrets Manager provider when AWS_SECRET_NAME is set
// and falls back to plain environment variables otherwise
func NewProvider() (Provider, error) {
	if os.Getenv("AWS_SECRET_NAME") == "" {
		return NewEnvProvider(""), nil
	}
	return NewAWSConfigProvider()
}
