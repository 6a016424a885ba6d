// Package config loads the session client's configuration from the
// environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config holds everything the session client needs from the environment.
type Config struct {
	AppName string `env:"APP_NAME" envDefault:"Dextektif"`

	// BaseURL is the root of the authentication API.
	BaseURL     string        `env:"AUTH_BASE_URL" envDefault:"https://api.cakradana.org"`
	HTTPTimeout time.Duration `env:"AUTH_HTTP_TIMEOUT" envDefault:"30s"`

	// RefreshLead is how long before token expiry a silent refresh fires.
	RefreshLead time.Duration `env:"REFRESH_LEAD" envDefault:"5m"`
	// RefreshTick is the period of the scheduler's self-healing re-arm loop.
	RefreshTick time.Duration `env:"REFRESH_TICK" envDefault:"1m"`

	// DataFolder is where the session file lives.
	DataFolder string `env:"DATA_FOLDER" envDefault:"./data"`

	Debug bool `env:"DEBUG" envDefault:"false"`
}

// Load reads configuration from the environment. A .env file, if present, is
// applied first; a missing one is fine.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] env.Parse")
	}
	return cfg, nil
}
