// Package config provides configuration management for the collection service
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

// Config holds all configuration for the service
type Config struct {
	Paga      PagaConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Callback  CallbackConfig
	Log       LogConfig
	RateLimit RateLimitConfig
}

// PagaConfig holds provider credentials
type PagaConfig struct {
	ClientID string        `env:"PAGA_CLIENT_ID"`
	Password string        `env:"PAGA_PASSWORD"`
	APIKey   string        `env:"PAGA_API_KEY"`
	Test     bool          `env:"PAGA_TEST,default=true"`
	BaseURL  string        `env:"PAGA_BASE_URL"`
	Timeout  time.Duration `env:"PAGA_TIMEOUT,default=30s"`
	// Currency applied by the service when a request names none
	Currency string `env:"PAGA_CURRENCY,default=NGN"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string        `env:"PAGACOLLECT_PORT,default=8080"`
	ReadTimeout     time.Duration `env:"PAGACOLLECT_READ_TIMEOUT,default=30s"`
	WriteTimeout    time.Duration `env:"PAGACOLLECT_WRITE_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"PAGACOLLECT_SHUTDOWN_TIMEOUT,default=10s"`
	// PublicURL is the externally reachable base URL; callback URLs sent to
	// the provider are derived from it
	PublicURL string `env:"PAGACOLLECT_PUBLIC_URL"`
	// AllowedOrigins lists CORS origins separated by "|". Empty allows any origin.
	AllowedOrigins []string `env:"PAGACOLLECT_ALLOWED_ORIGINS,separator=|"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string `env:"PAGACOLLECT_DB_DRIVER,default=postgres"`
	DSN    string `env:"PAGACOLLECT_DB_DSN,default=host=localhost dbname=pagacollect sslmode=disable"`
}

// AuthConfig holds operator authentication configuration
type AuthConfig struct {
	JWTSecret   string        `env:"PAGACOLLECT_JWT_SECRET"`
	TokenExpiry time.Duration `env:"PAGACOLLECT_TOKEN_EXPIRY,default=1h"`
	OperatorID  string        `env:"PAGACOLLECT_OPERATOR_ID,default=operator"`
	// OperatorSecretHash is a bcrypt hash of the operator secret
	OperatorSecretHash string `env:"PAGACOLLECT_OPERATOR_SECRET_HASH"`
}

// CallbackConfig holds the credentials the provider presents on callbacks
type CallbackConfig struct {
	Username string `env:"PAGACOLLECT_CALLBACK_USERNAME"`
	Password string `env:"PAGACOLLECT_CALLBACK_PASSWORD"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level       string `env:"PAGACOLLECT_LOG_LEVEL,default=info"`
	Environment string `env:"PAGACOLLECT_ENV,default=dev"`
}

// RateLimitConfig holds API rate limiting configuration
type RateLimitConfig struct {
	RPS   float64 `env:"PAGACOLLECT_RATE_LIMIT_RPS,default=20"`
	Burst int     `env:"PAGACOLLECT_RATE_LIMIT_BURST,default=40"`
}

// Load loads configuration from the environment with defaults. Values from a
// .env file in the working directory are applied first when present; real
// environment variables take precedence.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal environment variables: %w", err)
	}
	return &cfg, nil
}

// ClientConfig returns the provider client configuration
func (c *PagaConfig) ClientConfig() *pagacollect.ClientConfig {
	return &pagacollect.ClientConfig{
		ClientID: c.ClientID,
		Password: c.Password,
		APIKey:   c.APIKey,
		Test:     c.Test,
		BaseURL:  c.BaseURL,
		Timeout:  c.Timeout,
	}
}

// Validate checks the values needed by the provider client
func (c *PagaConfig) Validate() error {
	if c.ClientID == "" || c.Password == "" || c.APIKey == "" {
		return errors.New("PAGA_CLIENT_ID, PAGA_PASSWORD and PAGA_API_KEY are required")
	}
	return nil
}

// Validate checks the values needed to run the HTTP service
func (c *Config) Validate() error {
	var errs []error
	if err := c.Paga.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("PAGACOLLECT_JWT_SECRET is required"))
	}
	if c.Auth.OperatorSecretHash == "" {
		errs = append(errs, errors.New("PAGACOLLECT_OPERATOR_SECRET_HASH is required"))
	}
	if c.Callback.Username == "" || c.Callback.Password == "" {
		errs = append(errs, errors.New("PAGACOLLECT_CALLBACK_USERNAME and PAGACOLLECT_CALLBACK_PASSWORD are required"))
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		errs = append(errs, errors.New("rate limit rps and burst must be positive"))
	}
	return errors.Join(errs...)
}

// CallbackURL returns the URL the provider should call back, or "" when no
// public URL is configured
func (c *ServerConfig) CallbackURL() string {
	if c.PublicURL == "" {
		return ""
	}
	return c.PublicURL + "/callbacks/paga"
}
