package config

import (
	"errors"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/cholera-map-dashboard/internal/domain"
)

// Default input files, relative to the working directory.
const (
	DefaultDeathsPath = "Cholera_Deaths.csv"
	DefaultPumpsPath  = "Pumps.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	DeathsPath      string
	PumpsPath       string
	TileURL         string
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where
// unset or empty.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DeathsPath:      sharedcfg.EnvOrDefault("DEATHS_CSV", DefaultDeathsPath),
		PumpsPath:       sharedcfg.EnvOrDefault("PUMPS_CSV", DefaultPumpsPath),
		TileURL:         sharedcfg.EnvOrDefault("TILE_URL", domain.DefaultTileURL),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, errors.New("LOG_FORMAT must be json or text")
	}

	return cfg, nil
}
