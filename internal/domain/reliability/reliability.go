// Package reliability fits retirement probabilities from historical data
// and samples per-lap retirement events during simulation.
//
// Accident probability is per driver, mechanical failure probability per
// team. Both are per-race rates shrunk toward a Beta prior estimated from
// the population, so sparse entities never collapse to 0 or 1.
package reliability

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat"

	"github.com/apexsim/racesim/internal/domain/history"
)

// Fit and sampling errors.
var (
	ErrNotFitted = errors.New("retirement model not fitted")
	ErrNoHistory = errors.New("no retirement history")
)

// Outcome tags the result of one per-lap retirement draw.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeAccident
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeAccident:
		return "accident"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Event is the tagged outcome of one lap's retirement query. An accident
// may additionally deploy the safety car.
type Event struct {
	Outcome         Outcome
	TriggersCaution bool
}

// Default fitting parameters.
const (
	// defaultMinRacesForPrior excludes entities with thin history from
	// the population moments the prior is derived from.
	defaultMinRacesForPrior = 20

	// defaultPriorStrength is the pseudo-count prior used when the
	// population moments are degenerate (zero variance or a variance
	// incompatible with a Beta distribution).
	defaultPriorStrength = 10.0

	defaultCautionProbability = 0.2
)

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithMinRacesForPrior sets the race count an entity needs before it
// contributes to the population prior.
func WithMinRacesForPrior(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.minRacesForPrior = n
		}
	}
}

// WithCautionProbability sets the chance an accident deploys the safety car.
func WithCautionProbability(p float64) Option {
	return func(m *Model) {
		if p >= 0 && p <= 1 {
			m.cautionProbability = p
		}
	}
}

type beta struct {
	alpha float64
	beta  float64
}

func (b beta) mean() float64 { return b.alpha / (b.alpha + b.beta) }

// Model holds fitted per-entity retirement probabilities.
type Model struct {
	minRacesForPrior   int
	cautionProbability float64

	driverAccident map[string]float64 // per-race accident probability
	teamFailure    map[string]float64 // per-race failure probability
	accidentPrior  beta
	failurePrior   beta
	fitted         bool
}

// New creates an unfitted model.
func New(opts ...Option) *Model {
	m := &Model{
		minRacesForPrior:   defaultMinRacesForPrior,
		cautionProbability: defaultCautionProbability,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type tally struct {
	events int
	races  int
}

// Fit estimates accident and failure probabilities from driver-season
// retirement summaries. Empty input is a fit error; a driver or team
// missing from the input later falls back to the population prior mean.
func (m *Model) Fit(records []history.RetirementRecord) error {
	if len(records) == 0 {
		return ErrNoHistory
	}

	drivers := make(map[string]tally)
	teams := make(map[string]tally)
	for _, r := range records {
		d := drivers[r.DriverID]
		d.events += r.Accidents
		d.races += r.Races
		drivers[r.DriverID] = d

		t := teams[r.Team]
		t.events += r.Failures
		t.races += r.Races
		teams[r.Team] = t
	}

	m.accidentPrior = m.estimatePrior(drivers)
	m.failurePrior = m.estimatePrior(teams)

	m.driverAccident = make(map[string]float64, len(drivers))
	for id, d := range drivers {
		m.driverAccident[id] = posteriorMean(d, m.accidentPrior)
	}
	m.teamFailure = make(map[string]float64, len(teams))
	for name, t := range teams {
		m.teamFailure[name] = posteriorMean(t, m.failurePrior)
	}

	m.fitted = true
	return nil
}

// estimatePrior derives Beta prior parameters by method of moments from
// the proportions of entities with enough races. Degenerate moments fall
// back to a fixed-strength prior around the population mean.
func (m *Model) estimatePrior(entities map[string]tally) beta {
	var proportions []float64
	var sumEvents, sumRaces float64
	for _, t := range entities {
		if t.races == 0 {
			continue
		}
		sumEvents += float64(t.events)
		sumRaces += float64(t.races)
		if t.races >= m.minRacesForPrior {
			proportions = append(proportions, float64(t.events)/float64(t.races))
		}
	}

	// Population mean over all observed races, kept away from the
	// boundaries so the prior never degenerates to 0 or 1.
	mu := clampProbability(sumEvents / math.Max(sumRaces, 1))

	if len(proportions) >= 2 {
		pm := clampProbability(stat.Mean(proportions, nil))
		sigma2 := stat.Variance(proportions, nil)
		// Moment matching is only valid when sigma^2 < mu(1-mu).
		if sigma2 > 0 && sigma2 < pm*(1-pm) {
			alpha := ((1-pm)/sigma2 - 1/pm) * pm * pm
			if alpha > 0 {
				return beta{alpha: alpha, beta: alpha * (1/pm - 1)}
			}
		}
		mu = pm
	}

	return beta{alpha: mu * defaultPriorStrength, beta: (1 - mu) * defaultPriorStrength}
}

func posteriorMean(t tally, prior beta) float64 {
	return (float64(t.events) + prior.alpha) / (float64(t.races) + prior.alpha + prior.beta)
}

func clampProbability(p float64) float64 {
	const eps = 1e-4
	if math.IsNaN(p) {
		return eps
	}
	return math.Min(math.Max(p, eps), 1-eps)
}

// AccidentProbability returns the per-race accident probability for the
// driver, falling back to the population prior mean for unseen drivers.
func (m *Model) AccidentProbability(driverID string) (float64, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	if p, ok := m.driverAccident[driverID]; ok {
		return p, nil
	}
	return m.accidentPrior.mean(), nil
}

// FailureProbability returns the per-race mechanical failure probability
// for the team, falling back to the population prior mean for unseen teams.
func (m *Model) FailureProbability(team string) (float64, error) {
	if !m.fitted {
		return 0, ErrNotFitted
	}
	if p, ok := m.teamFailure[team]; ok {
		return p, nil
	}
	return m.failurePrior.mean(), nil
}

// PerLapHazard converts a per-race probability into a per-lap hazard under
// a uniform-hazard assumption over the planned race length:
// p_lap = 1 - (1 - p_race)^(1/laps).
func PerLapHazard(perRace float64, plannedLaps int) float64 {
	if plannedLaps < 1 || perRace <= 0 {
		return 0
	}
	if perRace >= 1 {
		return 1
	}
	return 1 - math.Pow(1-perRace, 1/float64(plannedLaps))
}

// Sample draws one lap's retirement event for the driver. Accident and
// failure are independent Bernoulli trials on the per-lap hazards; an
// accident outcome additionally draws the caution trigger. Pure query:
// only the rng advances.
func (m *Model) Sample(driverID, team string, plannedLaps int, rng *rand.Rand) (Event, error) {
	if !m.fitted {
		return Event{}, fmt.Errorf("%w: sampling driver %q", ErrNotFitted, driverID)
	}
	pAccident, err := m.AccidentProbability(driverID)
	if err != nil {
		return Event{}, err
	}
	pFailure, err := m.FailureProbability(team)
	if err != nil {
		return Event{}, err
	}

	accident := rng.Float64() < PerLapHazard(pAccident, plannedLaps)
	failure := rng.Float64() < PerLapHazard(pFailure, plannedLaps)

	switch {
	case accident:
		return Event{
			Outcome:         OutcomeAccident,
			TriggersCaution: rng.Float64() < m.cautionProbability,
		}, nil
	case failure:
		return Event{Outcome: OutcomeFailure}, nil
	default:
		return Event{}, nil
	}
}
