// Package config loads application configuration from the environment.
package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	// AppEnv selects the runtime profile (development, staging, production).
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	// DatabaseURL is the PostgreSQL DSN.
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present; missing files are fine.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	return cfg, nil
}

// IsDevelopment reports whether the development profile is active.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}
