// Package pace fits per-driver lap-time regressions on fuel load, tire
// age and compound, and predicts lap times during simulation.
//
// The regression target is the corrected lap time: the historical lap
// time minus that race's best qualifying lap, which normalizes away the
// track's absolute pace. Prediction adds the delta back onto the
// driver's baseline for the simulated race.
package pace

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
)

// Fit and prediction errors.
var (
	ErrInsufficientLaps = errors.New("not enough laps to fit pace model")
	ErrSingularFit      = errors.New("pace regression is singular")
	ErrDriverNotFitted  = errors.New("no pace fit for driver")
)

// Default model parameters.
const (
	// defaultMinLaps is the minimum historical laps required per driver.
	// Below it the fit is refused rather than silently degraded.
	defaultMinLaps = 12

	defaultCautionFactor = 1.2
	defaultLapTimeFloor  = 30.0
)

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithMinLaps sets the minimum lap count required to fit one driver.
func WithMinLaps(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.minLaps = n
		}
	}
}

// WithCautionFactor sets the lap-time multiplier under caution.
func WithCautionFactor(f float64) Option {
	return func(m *Model) {
		if f >= 1 {
			m.cautionFactor = f
		}
	}
}

// WithLapTimeFloor sets the minimum plausible predicted lap time.
func WithLapTimeFloor(seconds float64) Option {
	return func(m *Model) {
		if seconds > 0 {
			m.floor = seconds
		}
	}
}

// State is the driver state a prediction is conditioned on.
type State struct {
	Baseline     float64 // qualifying pace for the simulated race
	FuelLoad     float64
	TireAge      int
	Compound     model.Compound
	UnderCaution bool
}

// fit holds one driver's regression result.
type fit struct {
	intercept float64
	fuel      float64
	tireAge   float64
	// compound holds the indicator offset per compound index; compounds
	// unseen in the driver's history keep a zero offset.
	compound    [8]float64
	variability float64 // residual standard deviation
}

// Model holds the fitted per-driver coefficients.
type Model struct {
	minLaps       int
	cautionFactor float64
	floor         float64

	fits map[string]fit
}

// New creates an unfitted model.
func New(opts ...Option) *Model {
	m := &Model{
		minLaps:       defaultMinLaps,
		cautionFactor: defaultCautionFactor,
		floor:         defaultLapTimeFloor,
		fits:          make(map[string]fit),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fit runs one ordinary-least-squares regression per driver present in
// laps. Any driver with too few usable laps aborts the whole fit: an
// incomplete fit table would surface later as a mid-replay failure.
func (m *Model) Fit(laps []history.LapObservation) error {
	byDriver := make(map[string][]history.LapObservation)
	for _, lap := range laps {
		if lap.LapTime <= 0 || !lap.Compound.Valid() {
			continue
		}
		byDriver[lap.DriverID] = append(byDriver[lap.DriverID], lap)
	}
	if len(byDriver) == 0 {
		return fmt.Errorf("%w: no usable laps at all", ErrInsufficientLaps)
	}

	for driverID, obs := range byDriver {
		if len(obs) < m.minLaps {
			return fmt.Errorf("%w: driver %q has %d laps, need %d",
				ErrInsufficientLaps, driverID, len(obs), m.minLaps)
		}
		f, err := fitDriver(obs)
		if err != nil {
			return fmt.Errorf("driver %q: %w", driverID, err)
		}
		m.fits[driverID] = f
	}
	return nil
}

// Fitted reports whether a fit exists for the driver.
func (m *Model) Fitted(driverID string) bool {
	_, ok := m.fits[driverID]
	return ok
}

// Variability returns the fitted residual standard deviation for the driver.
func (m *Model) Variability(driverID string) (float64, error) {
	f, ok := m.fits[driverID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrDriverNotFitted, driverID)
	}
	return f.variability, nil
}

// Predict returns a lap time for the driver's current state: baseline
// plus the fitted linear adjustment plus Normal residual noise, scaled
// by the caution factor when under caution and clamped at the floor.
// A driver without a fit is a configuration error, never defaulted.
func (m *Model) Predict(driverID string, s State, rng *rand.Rand) (float64, error) {
	f, ok := m.fits[driverID]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrDriverNotFitted, driverID)
	}

	delta := f.intercept + f.fuel*s.FuelLoad + f.tireAge*float64(s.TireAge)
	if idx := s.Compound.Index(); idx >= 0 {
		delta += f.compound[idx]
	}

	lapTime := s.Baseline + delta + rng.NormFloat64()*f.variability
	if s.UnderCaution {
		lapTime *= m.cautionFactor
	}
	if lapTime < m.floor {
		lapTime = m.floor
	}
	return lapTime, nil
}
