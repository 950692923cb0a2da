package config

import (
	"fmt"

	"github.com/rs/zerolog"
)

type ObservabilityConfig struct {
	ServiceName string         `koanf:"service_name"`
	Environment string         `koanf:"environment"`
	LogLevel    string         `koanf:"log_level"`
	NewRelic    NewRelicConfig `koanf:"new_relic"`
}

type NewRelicConfig struct {
	LicenseKey string `koanf:"license_key"`
	AppName    string `koanf:"app_name"`
}

func DefaultObservabilityConfig() *ObservabilityConfig {
	return &ObservabilityConfig{
		ServiceName: "consultlog",
		Environment: "development",
		LogLevel:    "info",
	}
}

// Validate checks the log level parses and fills an empty one with "info".
func (o *ObservabilityConfig) Validate() error {
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if _, err := zerolog.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("log_level %q: %w", o.LogLevel, err)
	}
	return nil
}

// Level returns the parsed zerolog level, falling back to info.
func (o *ObservabilityConfig) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(o.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// NewRelicEnabled reports whether a license key was provided.
func (o *ObservabilityConfig) NewRelicEnabled() bool {
	return o.NewRelic.LicenseKey != ""
}
