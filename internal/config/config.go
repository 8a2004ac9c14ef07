package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/avelkov/account-service/pkg/config"
)

const minSecretLength = 32

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8084"`

	MongoURL string `env:"MONGO_URL" envDefault:"mongodb://localhost:27017/accounts"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"dev-access-secret"`
	AccessTokenExpiry  time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"dev-refresh-secret"`
	RefreshTokenExpiry time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`

	// MediaUploadURL selects the media host backend; when empty the
	// service falls back to in-memory storage, which only suits local runs.
	MediaUploadURL string `env:"MEDIA_UPLOAD_URL"`
	MediaBaseURL   string `env:"MEDIA_BASE_URL" envDefault:"http://localhost:8084/media"`
	MediaAPIKey    string `env:"MEDIA_API_KEY"`

	// KafkaBrokers may be empty; event publishing is then disabled.
	KafkaBrokers []string `env:"KAFKA_BROKERS"`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"account.events"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate enforces invariants that env parsing cannot express.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT out of range: %d", c.HTTPPort)
	}
	if c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL is required")
	}
	if c.AccessTokenExpiry <= 0 || c.RefreshTokenExpiry <= 0 {
		return fmt.Errorf("token expiries must be positive")
	}

	if !c.IsDevelopment() {
		if len(c.AccessTokenSecret) < minSecretLength {
			return fmt.Errorf("ACCESS_TOKEN_SECRET must be at least %d characters outside development", minSecretLength)
		}
		if len(c.RefreshTokenSecret) < minSecretLength {
			return fmt.Errorf("REFRESH_TOKEN_SECRET must be at least %d characters outside development", minSecretLength)
		}
		if c.AccessTokenSecret == c.RefreshTokenSecret {
			return fmt.Errorf("access and refresh token secrets must differ")
		}
	}
	return nil
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	switch c.Environment {
	case "development", "dev", "local", "test":
		return true
	}
	return false
}
