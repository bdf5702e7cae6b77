package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. YAML file if RACESIM_CONFIG is set
//  3. env (prefix RACESIM_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("RACESIM_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// RACESIM_ITERATIONS -> iterations, RACESIM_CAUTION_LAPS -> caution_laps.
	envProvider := env.Provider("RACESIM_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "racesim_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be positive, got %d", ErrInvalidConfig, c.Iterations)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.CautionProbability < 0 || c.CautionProbability > 1 {
		return fmt.Errorf("%w: caution_probability must be in [0,1], got %g", ErrInvalidConfig, c.CautionProbability)
	}
	if c.CautionLaps < 0 {
		return fmt.Errorf("%w: caution_laps must not be negative, got %d", ErrInvalidConfig, c.CautionLaps)
	}
	if c.CautionFactor < 1 {
		return fmt.Errorf("%w: caution_factor must be >= 1, got %g", ErrInvalidConfig, c.CautionFactor)
	}
	if c.PitLaneLoss < 0 {
		return fmt.Errorf("%w: pit_lane_loss must not be negative, got %g", ErrInvalidConfig, c.PitLaneLoss)
	}
	if c.LapTimeFloor <= 0 {
		return fmt.Errorf("%w: lap_time_floor must be positive, got %g", ErrInvalidConfig, c.LapTimeFloor)
	}
	if c.Track == "" {
		return fmt.Errorf("%w: track must not be empty", ErrInvalidConfig)
	}
	if c.PlannedLaps < 1 {
		return fmt.Errorf("%w: planned_laps must be positive, got %d", ErrInvalidConfig, c.PlannedLaps)
	}
	if c.Teams < 1 {
		return fmt.Errorf("%w: teams must be positive, got %d", ErrInvalidConfig, c.Teams)
	}
	return nil
}
