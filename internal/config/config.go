// internal/config/config.go
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Env      string `mapstructure:"ENV"`
	Port     int    `mapstructure:"PORT"`
	DBURL    string `mapstructure:"DB_URL"`

	GithubToken string `mapstructure:"GITHUB_TOKEN"`

	OpenAIAPIKey  string `mapstructure:"OPENAI_API_KEY"`
	OpenAIModel   string `mapstructure:"OPENAI_MODEL"`
	OpenAIBaseURL string `mapstructure:"OPENAI_BASE_URL"`

	AuthURL        string `mapstructure:"AUTH_URL"`
	AuthJWTSecret  string `mapstructure:"AUTH_JWT_SECRET"`
	AuthServiceKey string `mapstructure:"AUTH_SERVICE_KEY"`

	CacheTTL           time.Duration `mapstructure:"CACHE_TTL"`
	CacheSweepInterval time.Duration `mapstructure:"CACHE_SWEEP_INTERVAL"`
}

// IsProduction reports whether the service runs with production error
// rendering (no internal detail in responses).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// LoadConfig reads configuration from file and/or environment variables.
func LoadConfig() (*Config, error) {
	// Set default values
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("PORT", 8080)
	viper.SetDefault("OPENAI_MODEL", "gpt-4o-mini")
	viper.SetDefault("CACHE_TTL", "24h")
	viper.SetDefault("CACHE_SWEEP_INTERVAL", "10m")

	// Load from .env file if it exists
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	_ = viper.ReadInConfig() // Ignore error if file not found

	// Bind environment variables
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate required fields. GITHUB_TOKEN and OPENAI_API_KEY are optional:
	// without the former the provider client runs unauthenticated, without the
	// latter every insight comes from the deterministic fallbacks.
	if cfg.DBURL == "" {
		return nil, errors.New("DB_URL is a required configuration field")
	}
	if cfg.AuthURL == "" {
		return nil, errors.New("AUTH_URL is a required configuration field")
	}
	if cfg.AuthJWTSecret == "" {
		return nil, errors.New("AUTH_JWT_SECRET is a required configuration field")
	}
	if cfg.CacheTTL <= 0 {
		return nil, errors.New("CACHE_TTL must be a positive duration")
	}
	if cfg.CacheSweepInterval <= 0 {
		return nil, errors.New("CACHE_SWEEP_INTERVAL must be a positive duration")
	}

	return &cfg, nil
}
