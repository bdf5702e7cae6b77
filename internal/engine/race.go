// Package engine advances a race lap by lap for every competitor and
// replays it under Monte Carlo to build outcome distributions.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/pace"
	"github.com/apexsim/racesim/internal/domain/reliability"
	"github.com/apexsim/racesim/pkg/logger"
	"github.com/apexsim/racesim/pkg/metrics"
)

// Replay configuration errors.
var (
	ErrNoEntries     = errors.New("no race entries")
	ErrMissingTeam   = errors.New("entry has no team")
	ErrInvalidParams = errors.New("invalid race parameters")
)

// RetirementSampler draws per-lap retirement events.
type RetirementSampler interface {
	Sample(driverID, team string, plannedLaps int, rng *rand.Rand) (reliability.Event, error)
}

// LapTimePredictor predicts one lap time for a driver state.
type LapTimePredictor interface {
	Predict(driverID string, s pace.State, rng *rand.Rand) (float64, error)
}

// StopSampler draws pit-stop stationary times.
type StopSampler interface {
	SampleDuration(team, track string, rng *rand.Rand) (float64, error)
}

// Default race parameters.
const (
	defaultPlannedLaps = 50
	defaultPitLaneLoss = 18.0
	defaultCautionLaps = 5
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithTrack sets the track the pit-stop model is queried for.
func WithTrack(track string) Option {
	return func(e *Engine) { e.track = track }
}

// WithPlannedLaps sets the race distance.
func WithPlannedLaps(laps int) Option {
	return func(e *Engine) {
		if laps > 0 {
			e.plannedLaps = laps
		}
	}
}

// WithPitLaneLoss sets the fixed time lost driving through the pit lane,
// on top of the sampled stationary time.
func WithPitLaneLoss(seconds float64) Option {
	return func(e *Engine) {
		if seconds >= 0 {
			e.pitLaneLoss = seconds
		}
	}
}

// WithCautionLaps sets how many laps a caution period lasts.
func WithCautionLaps(laps int) Option {
	return func(e *Engine) {
		if laps > 0 {
			e.cautionLaps = laps
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(log logger.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// Engine replays a single race. The fitted models it holds are read-only
// and safely shared across parallel replays; all mutable state lives in
// the per-replay Driver values.
type Engine struct {
	retirement RetirementSampler
	pace       LapTimePredictor
	stops      StopSampler

	track       string
	plannedLaps int
	pitLaneLoss float64
	cautionLaps int

	log logger.Logger
}

// New creates an engine over the three fitted models.
func New(retirement RetirementSampler, predictor LapTimePredictor, stops StopSampler, opts ...Option) (*Engine, error) {
	if retirement == nil || predictor == nil || stops == nil {
		return nil, fmt.Errorf("%w: all three models are required", ErrInvalidParams)
	}
	e := &Engine{
		retirement:  retirement,
		pace:        predictor,
		stops:       stops,
		plannedLaps: defaultPlannedLaps,
		pitLaneLoss: defaultPitLaneLoss,
		cautionLaps: defaultCautionLaps,
		log:         logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// PlannedLaps returns the configured race distance.
func (e *Engine) PlannedLaps() int { return e.plannedLaps }

// Run executes one full replay of the race for the given entries, using
// rng for every stochastic draw. With the same entries and an rng seeded
// identically, two runs produce identical outcomes.
//
// A model that cannot produce a value for a referenced entity aborts the
// replay with a descriptive error; that is a data-setup defect, not a
// modeled random event.
func (e *Engine) Run(replayIndex int, entries []*model.Entry, rng *rand.Rand) (model.RaceOutcome, error) {
	if len(entries) == 0 {
		return model.RaceOutcome{}, ErrNoEntries
	}

	drivers := make([]*model.Driver, 0, len(entries))
	for _, entry := range entries {
		if entry.Team == nil {
			return model.RaceOutcome{}, fmt.Errorf("%w: driver %q", ErrMissingTeam, entry.DriverID)
		}
		if err := entry.Strategy.Validate(e.plannedLaps); err != nil {
			return model.RaceOutcome{}, fmt.Errorf("driver %q strategy: %w", entry.DriverID, err)
		}
		drivers = append(drivers, model.NewDriver(entry))
	}
	// Grid order fixes the per-lap iteration order, which fixes the rng
	// draw order and with it replay determinism.
	sort.Slice(drivers, func(i, j int) bool {
		return drivers[i].Entry.GridPosition < drivers[j].Entry.GridPosition
	})

	fuelBurn := 100 / float64(e.plannedLaps)
	var caution model.CautionPeriod
	cautionLaps := 0

	for lap := 1; lap <= e.plannedLaps; lap++ {
		underCaution := caution.Active(lap)
		if underCaution {
			cautionLaps++
			metrics.RecordCautionLap()
		}
		cautionTriggered := false

		for _, d := range drivers {
			if !d.Racing() {
				continue
			}
			entry := d.Entry

			ev, err := e.retirement.Sample(entry.DriverID, entry.Team.Name, e.plannedLaps, rng)
			if err != nil {
				return model.RaceOutcome{}, fmt.Errorf("lap %d driver %q: %w", lap, entry.DriverID, err)
			}
			if ev.Outcome != reliability.OutcomeNone {
				d.Retire(lap)
				metrics.RecordDNF(ev.Outcome.String())
				if ev.TriggersCaution && !caution.Active(lap) && caution.EndLap <= lap {
					cautionTriggered = true
				}
				continue
			}

			var pitExtra float64
			pitted := false
			if stop, ok := e.dueStop(d, lap, underCaution); ok {
				stationary, err := e.stops.SampleDuration(entry.Team.Name, e.track, rng)
				if err != nil {
					return model.RaceOutcome{}, fmt.Errorf("lap %d driver %q pit stop: %w", lap, entry.DriverID, err)
				}
				pitExtra = stationary + e.pitLaneLoss
				metrics.RecordPitStopDuration(stationary)
				d.Compound = stop.Compound
				d.TireAge = 0
				d.NextStop++
				pitted = true
			}

			lapTime, err := e.pace.Predict(entry.DriverID, pace.State{
				Baseline:     entry.QualifyingTime,
				FuelLoad:     d.FuelLoad,
				TireAge:      d.TireAge,
				Compound:     d.Compound,
				UnderCaution: underCaution,
			}, rng)
			if err != nil {
				return model.RaceOutcome{}, fmt.Errorf("lap %d driver %q: %w", lap, entry.DriverID, err)
			}

			d.RecordLap(model.LapRecord{
				Lap:          lap,
				LapTime:      lapTime + pitExtra,
				Compound:     d.Compound,
				TireAge:      d.TireAge,
				Pitted:       pitted,
				UnderCaution: underCaution,
			})

			d.FuelLoad -= fuelBurn
			if d.FuelLoad < 0 {
				d.FuelLoad = 0
			}
			d.TireAge++
		}

		// A triggered caution opens next lap and never extends one that
		// is already running or pending.
		if cautionTriggered {
			caution = model.CautionPeriod{StartLap: lap + 1, EndLap: lap + e.cautionLaps}
			e.log.Debug(context.Background(), "caution deployed",
				logger.Int("from_lap", caution.StartLap),
				logger.Int("to_lap", caution.EndLap))
		}
	}

	for _, d := range drivers {
		if d.Racing() {
			d.Status = model.StatusFinished
		}
	}

	return model.RaceOutcome{
		ReplayIndex:    replayIndex,
		CautionLaps:    cautionLaps,
		Classification: model.Classify(drivers),
	}, nil
}

// dueStop reports whether the driver pits this lap: either the planned
// lap has arrived, or a caution is running inside the stop's declared
// window and the cheap stop is taken early.
func (e *Engine) dueStop(d *model.Driver, lap int, underCaution bool) (model.PitEvent, bool) {
	if d.NextStop >= len(d.Entry.Strategy.Stops) {
		return model.PitEvent{}, false
	}
	stop := d.Entry.Strategy.Stops[d.NextStop]
	if lap == stop.Lap {
		return stop, true
	}
	if underCaution && stop.WindowStart != 0 && lap >= stop.WindowStart && lap <= stop.WindowEnd {
		return stop, true
	}
	return model.PitEvent{}, false
}
