// Package service wires the historical provider, the fitted models and
// the Monte Carlo engine into one simulation facade: fit everything
// once, then run batches.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/pace"
	"github.com/apexsim/racesim/internal/domain/pitstop"
	"github.com/apexsim/racesim/internal/domain/registry"
	"github.com/apexsim/racesim/internal/domain/reliability"
	"github.com/apexsim/racesim/internal/engine"
	"github.com/apexsim/racesim/pkg/logger"
)

// Service lifecycle errors.
var (
	ErrNoProvider  = errors.New("historical provider is required")
	ErrNoRace      = errors.New("race metadata is required")
	ErrNotPrepared = errors.New("service not prepared")
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithProvider sets the historical-data provider.
func WithProvider(p history.Provider) Option {
	return func(s *Service) { s.provider = p }
}

// WithRegistry sets the team registry.
func WithRegistry(r *registry.Registry) Option {
	return func(s *Service) {
		if r != nil {
			s.registry = r
		}
	}
}

// WithRace sets the race to simulate.
func WithRace(meta history.RaceMeta) Option {
	return func(s *Service) { s.meta = meta }
}

// WithIterations sets the Monte Carlo replay count.
func WithIterations(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.iterations = n
		}
	}
}

// WithWorkers bounds the parallel replay workers.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithSeed sets the base random seed.
func WithSeed(seed int64) Option {
	return func(s *Service) { s.seed = seed }
}

// WithCautionProbability sets the chance an accident deploys the safety car.
func WithCautionProbability(p float64) Option {
	return func(s *Service) {
		if p >= 0 && p <= 1 {
			s.cautionProbability = p
		}
	}
}

// WithCautionLaps sets the caution period length.
func WithCautionLaps(laps int) Option {
	return func(s *Service) {
		if laps > 0 {
			s.cautionLaps = laps
		}
	}
}

// WithCautionFactor sets the lap-time multiplier under caution.
func WithCautionFactor(f float64) Option {
	return func(s *Service) {
		if f >= 1 {
			s.cautionFactor = f
		}
	}
}

// WithPitLaneLoss sets the fixed pit-lane transit loss in seconds.
func WithPitLaneLoss(seconds float64) Option {
	return func(s *Service) {
		if seconds >= 0 {
			s.pitLaneLoss = seconds
		}
	}
}

// WithLapTimeFloor sets the minimum plausible lap time in seconds.
func WithLapTimeFloor(seconds float64) Option {
	return func(s *Service) {
		if seconds > 0 {
			s.lapTimeFloor = seconds
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// Result is one simulated batch plus its per-driver aggregation.
type Result struct {
	Batch *engine.BatchResult
	Stats []engine.DriverStats
}

// Service owns the fitted models and the Monte Carlo engine for one race.
type Service struct {
	mu sync.RWMutex

	provider history.Provider
	registry *registry.Registry
	meta     history.RaceMeta

	iterations         int
	workers            int
	seed               int64
	cautionProbability float64
	cautionLaps        int
	cautionFactor      float64
	pitLaneLoss        float64
	lapTimeFloor       float64

	retirement *reliability.Model
	pace       *pace.Model
	pitstops   *pitstop.Model
	montecarlo *engine.MonteCarlo

	entries  []*model.Entry
	prepared bool
	last     *Result

	logger logger.Logger
}

// New creates a service. A provider and race metadata are required; the
// rest defaults sensibly.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		registry:           registry.New(),
		iterations:         1000,
		workers:            runtime.NumCPU(),
		seed:               1,
		cautionProbability: 0.2,
		cautionLaps:        5,
		cautionFactor:      1.2,
		pitLaneLoss:        18,
		lapTimeFloor:       30,
		logger:             logger.Get().Named("service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	if s.meta.PlannedLaps < 1 || s.meta.Track == "" {
		return nil, fmt.Errorf("%w: track %q, %d laps", ErrNoRace, s.meta.Track, s.meta.PlannedLaps)
	}
	return s, nil
}

// Prepare fits all three models from the provider's history, fills the
// fitted fields on the entries (baseline pace, accident and failure
// probabilities, pit parameters) and freezes the registry. It must
// complete before Simulate; any fit failure here is terminal.
func (s *Service) Prepare(ctx context.Context, entries []*model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(entries) == 0 {
		return engine.ErrNoEntries
	}

	retirements, err := s.provider.Retirements(ctx)
	if err != nil {
		return fmt.Errorf("loading retirements: %w", err)
	}
	laps, err := s.provider.Laps(ctx)
	if err != nil {
		return fmt.Errorf("loading laps: %w", err)
	}
	stops, err := s.provider.PitStops(ctx)
	if err != nil {
		return fmt.Errorf("loading pit stops: %w", err)
	}

	s.retirement = reliability.New(reliability.WithCautionProbability(s.cautionProbability))
	if err := s.retirement.Fit(retirements); err != nil {
		return fmt.Errorf("fitting retirement model: %w", err)
	}
	s.pace = pace.New(
		pace.WithCautionFactor(s.cautionFactor),
		pace.WithLapTimeFloor(s.lapTimeFloor))
	if err := s.pace.Fit(laps); err != nil {
		return fmt.Errorf("fitting pace model: %w", err)
	}
	s.pitstops = pitstop.New()
	if err := s.pitstops.Fit(stops); err != nil {
		return fmt.Errorf("fitting pit stop model: %w", err)
	}
	if err := s.pitstops.Annotate(s.registry, s.meta.Track); err != nil {
		return fmt.Errorf("annotating teams: %w", err)
	}

	for _, entry := range entries {
		if entry.Team == nil {
			return fmt.Errorf("%w: driver %q", engine.ErrMissingTeam, entry.DriverID)
		}
		if _, err := pitstop.ScheduledStops(entry.Strategy, s.meta.PlannedLaps); err != nil {
			return fmt.Errorf("driver %q strategy: %w", entry.DriverID, err)
		}
		q, err := s.provider.QualifyingTime(ctx, entry.DriverID)
		if err != nil {
			return fmt.Errorf("driver %q qualifying: %w", entry.DriverID, err)
		}
		entry.QualifyingTime = q

		p, err := s.retirement.AccidentProbability(entry.DriverID)
		if err != nil {
			return fmt.Errorf("driver %q accident probability: %w", entry.DriverID, err)
		}
		entry.AccidentProbability = p

		fp, err := s.retirement.FailureProbability(entry.Team.Name)
		if err != nil {
			return fmt.Errorf("team %q failure probability: %w", entry.Team.Name, err)
		}
		entry.Team.FailureProbability = fp
	}

	s.registry.Freeze()

	raceEngine, err := engine.New(s.retirement, s.pace, s.pitstops,
		engine.WithTrack(s.meta.Track),
		engine.WithPlannedLaps(s.meta.PlannedLaps),
		engine.WithPitLaneLoss(s.pitLaneLoss),
		engine.WithCautionLaps(s.cautionLaps),
		engine.WithLogger(s.logger.Named("engine")))
	if err != nil {
		return err
	}
	s.montecarlo, err = engine.NewMonteCarlo(raceEngine,
		engine.WithIterations(s.iterations),
		engine.WithWorkers(s.workers),
		engine.WithSeed(s.seed),
		engine.WithBatchLogger(s.logger.Named("montecarlo")))
	if err != nil {
		return err
	}

	s.entries = entries
	s.prepared = true
	s.logger.Info(ctx, "service prepared",
		logger.String("track", s.meta.Track),
		logger.Int("planned_laps", s.meta.PlannedLaps),
		logger.Int("grid_size", len(entries)),
		logger.Int("teams", s.registry.Len()))
	return nil
}

// Simulate runs one Monte Carlo batch over the prepared race and
// aggregates the outcomes per driver.
func (s *Service) Simulate(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.prepared {
		return nil, ErrNotPrepared
	}
	batch, err := s.montecarlo.RunBatch(ctx, s.entries)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Batch: batch,
		Stats: engine.Aggregate(batch.Outcomes),
	}
	s.last = result
	return result, nil
}

// GetStats returns the most recent batch result, or false when no batch
// has completed yet.
func (s *Service) GetStats() (*Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.last != nil
}
