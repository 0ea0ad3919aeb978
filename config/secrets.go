package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsManagerAPI is the subset of the Secrets Manager client used here
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSSecretsProvider implements Provider using a single JSON secret in AWS
// Secrets Manager. Keys missing from the secret fall back to the environment,
// so non-sensitive settings like PORT can stay in plain variables.
type AWSSecretsProvider struct {
	client      SecretsManagerAPI
	secretName  string
	fallback    Provider
	environment Environment

	mu        sync.Mutex
	cache     map[string]string
	lastFetch time.Time
}

// NewAWSConfigProvider creates a Secrets Manager provider for AWS_SECRET_NAME
func NewAWSConfigProvider() (Provider, error) {
	secretName := os.Getenv("AWS_SECRET_NAME")
	if secretName == "" {
		return nil, fmt.Errorf("AWS_SECRET_NAME environment variable not set")
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return NewAWSSecretsProvider(secretsmanager.NewFromConfig(cfg), secretName), nil
}

// NewAWSSecretsProvider creates a provider backed by the given client
func NewAWSSecretsProvider(client SecretsManagerAPI, secretName string) *AWSSecretsProvider {
	return &AWSSecretsProvider{
		client:      client,
		secretName:  secretName,
		fallback:    NewEnvProvider(""),
		environment: currentEnvironment(),
	}
}

// GetEnvironment returns the current environment
func (p *AWSSecretsProvider) GetEnvironment() Environment {
	return p.environment
}

// GetString retrieves a string configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetString(ctx context.Context, key string) (string, error) {
	secrets, err := p.load(ctx)
	if err != nil {
		return "", err
	}
	if value, ok := secrets[key]; ok {
		return value, nil
	}
	return p.fallback.GetString(ctx, key)
}

// load fetches and validates the secret once, then serves it from memory
func (p *AWSSecretsProvider) load(ctx context.Context) (map[string]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cache != nil {
		return p.cache, nil
	}

	secret, err := p.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(p.secretName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get secret: %w", err)
	}
	if secret.SecretString == nil {
		return nil, fmt.Errorf("secret %s has no string value", p.secretName)
	}

	var secretMap map[string]string
	if err := json.Unmarshal([]byte(*secret.SecretString), &secretMap); err != nil {
		return nil, fmt.Errorf("failed to parse secret JSON: %w", err)
	}
	if err := validateSecretSchema(secretMap, p.environment); err != nil {
		return nil, fmt.Errorf("invalid secret schema: %w", err)
	}

	p.cache = secretMap
	p.lastFetch = time.Now()
	return secretMap, nil
}

// GetInt retrieves an integer configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetInt(ctx context.Context, key string) (int, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// GetBool retrieves a boolean configuration value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetBool(ctx context.Context, key string) (bool, error) {
	value, err := p.GetString(ctx, key)
	if err != nil {
		return false, err
	}
	return strconv.ParseBool(value)
}

// GetSecret retrieves a secret value from AWS Secrets Manager
func (p *AWSSecretsProvider) GetSecret(ctx context.Context, key string) (string, error) {
	return p.GetString(ctx, key)
}

var validSSLModes = map[string]bool{
	"disable":     true,
	"require":     true,
	"verify-ca":   true,
	"verify-full": true,
}

// validateSecretSchema validates the structure of the database secret
func validateSecretSchema(secrets map[string]string, env Environment) error {
	requiredKeys := []string{
		"DB_HOST",
		"DB_PORT",
		"DB_USER",
		"DB_PASSWORD",
		"DB_NAME",
		"DB_SSLMODE",
	}
	for _, key := range requiredKeys {
		if _, ok := secrets[key]; !ok {
			return &ValidationError{Field: key, Message: "required secret key not found"}
		}
	}

	if _, err := strconv.Atoi(secrets["DB_PORT"]); err != nil {
		return &ValidationError{Field: "DB_PORT", Message: "port must be a valid number"}
	}
	if !validSSLModes[secrets["DB_SSLMODE"]] {
		return &ValidationError{Field: "DB_SSLMODE", Message: "invalid SSL mode"}
	}

	if env == Production {
		if strings.ToLower(secrets["DB_HOST"]) == "localhost" {
			return &ValidationError{Field: "DB_HOST", Message: "localhost is not allowed in production"}
		}
		if secrets["DB_SSLMODE"] == "disable" {
			return &ValidationError{Field: "DB_SSLMODE", Message: "SSL cannot be disabled in production"}
		}
		if err := validateProductionPassword(secrets["DB_PASSWORD"]); err != nil {
			err.Field = "DB_PASSWORD"
			return err
		}
	}
	return nil
}

var passwordRules = []struct {
	pattern *regexp.Regexp
	message string
}{
	{regexp.MustCompile(`[A-Z]`), "password must contain at least one uppercase letter in production"},
	{regexp.MustCompile(`[a-z]`), "password must contain at least one lowercase letter in production"},
	{regexp.MustCompile(`[0-9]`), "password must contain at least one number in production"},
	{regexp.MustCompile(`[^A-Za-z0-9]`), "password must contain at least one special character in production"},
}

func validateProductionPassword(password string) *ValidationError {
	if len(password) < 12 {
		return &ValidationError{Field: "Password", Message: "password must be at least 12 characters long in production"}
	}
	for _, rule := range passwordRules {
		if !rule.pattern.MatchString(password) {
			return &ValidationError{Field: "Password", Message: rule.message}
		}
	}
	return nil
}
