// Package config defines simulator configuration and loading.
//
// Conventions follow the rest of the project: defaults come from New,
// a YAML file and RACESIM_-prefixed environment variables layer on top,
// and validation happens once after unmarshaling.
package config

import "runtime"

// Config contains process configuration for a simulation batch.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// MetricsAddr is the optional Prometheus listen address, e.g. ":9090".
	// Empty disables the metrics endpoint.
	MetricsAddr string `koanf:"metrics_addr"`

	// Iterations is the number of Monte Carlo replays per batch.
	Iterations int `koanf:"iterations"`

	// Workers bounds the number of parallel replay goroutines.
	Workers int `koanf:"workers"`

	// Seed is the base random seed; iteration i uses Seed+i.
	Seed int64 `koanf:"seed"`

	// CautionProbability is the chance an accident deploys the safety car.
	CautionProbability float64 `koanf:"caution_probability"`

	// CautionLaps is the fixed length of a caution period, in laps.
	CautionLaps int `koanf:"caution_laps"`

	// CautionFactor multiplies lap times while a caution is active.
	CautionFactor float64 `koanf:"caution_factor"`

	// PitLaneLoss is the fixed time lost driving through the pit lane,
	// in seconds, on top of the sampled stationary time.
	PitLaneLoss float64 `koanf:"pit_lane_loss"`

	// LapTimeFloor is the minimum plausible lap time, in seconds.
	// Predictions below it are clamped, never propagated.
	LapTimeFloor float64 `koanf:"lap_time_floor"`

	// Track names the circuit the synthetic scenario is built for.
	Track string `koanf:"track"`

	// PlannedLaps is the race distance of the simulated race.
	PlannedLaps int `koanf:"planned_laps"`

	// Teams is the synthetic field size, two drivers per team.
	Teams int `koanf:"teams"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		MetricsAddr:        "",
		Iterations:         1000,
		Workers:            runtime.NumCPU(),
		Seed:               1,
		CautionProbability: 0.2,
		CautionLaps:        5,
		CautionFactor:      1.2,
		PitLaneLoss:        18.0,
		LapTimeFloor:       30.0,
		Track:              "Interlagos",
		PlannedLaps:        52,
		Teams:              10,
	}
}
