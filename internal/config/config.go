package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config contains gateway configuration parameters.
type Config struct {
	LogLevel  int       `env:"LOG_LEVEL" envDefault:"0"`
	HTTP      HTTP      `envPrefix:"HTTP_"`
	Database  Database  `envPrefix:"DATABASE_"`
	Keystore  Keystore  `envPrefix:"KEYSTORE_"`
	RateLimit RateLimit `envPrefix:"RATELIMIT_"`
	Provider  Provider  `envPrefix:"PROVIDER_"`
	JWT       JWT       `envPrefix:"JWT_"`
}

// HTTP contains HTTP server parameters.
type HTTP struct {
	Port               string `env:"PORT" envDefault:"8087"`
	EnableHTTPS        bool   `env:"ENABLE_HTTPS" envDefault:"false"`
	CertFileName       string `env:"CERT_FILE_NAME" envDefault:"cert.pem"`
	PrivateKeyFileName string `env:"PRIVATE_KEY_FILE_NAME" envDefault:"key.pem"`
}

// Database contains local attempt-store parameters.
type Database struct {
	Path string `env:"PATH" envDefault:"authgate.db"`
}

// Keystore contains encrypted credential-store parameters.
type Keystore struct {
	Path       string `env:"PATH" envDefault:"authgate.keystore"`
	Passphrase string `env:"PASSPHRASE" envDefault:"devpassphrase"`
}

// RateLimit contains login rate-limiter parameters.
type RateLimit struct {
	Threshold  int           `env:"THRESHOLD" envDefault:"5"`
	BackoffCap time.Duration `env:"BACKOFF_CAP" envDefault:"1h"`
}

// Provider contains identity-provider parameters. Mode "local" runs the
// in-process development provider instead of the remote one.
type Provider struct {
	Mode    string        `env:"MODE" envDefault:"local"`
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:9999"`
	APIKey  string        `env:"API_KEY"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"10s"`
	Issuer  string        `env:"ISSUER" envDefault:"Collectr"`
}

// JWT contains JWT-related parameters.
type JWT struct {
	Secret string `env:"SECRET" envDefault:"devsecret"`
}

// NewConfig loads configuration from environment variables.
func NewConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
