// Package pitstop fits pit-stop stationary-time distributions from
// historical stops and samples durations during simulation.
//
// Each track gets a baseline, the 2.5 percent quantile of all stationary
// times recorded there, which captures the best realistic stop. The
// excess over the baseline is heavy-tailed (fumbled wheel guns, unsafe
// release holds) and is modeled per team and track with a Fisk, also
// known as log-logistic, distribution.
package pitstop

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/registry"
)

// Fit and sampling errors.
var (
	ErrNoStops   = errors.New("no pit stop history")
	ErrNotFitted = errors.New("pit stop model not fitted")
)

// Default fitting parameters.
const (
	// defaultMinStops is the group size below which a team-track group
	// falls back to the track pool, and a track pool to the global pool.
	defaultMinStops = 5

	baselineQuantile = 0.025

	// minLogSpread keeps the Fisk shape finite when a group's excesses
	// are nearly identical.
	minLogSpread = 1e-3
)

// Option applies a configuration option to the Model.
type Option func(*Model)

// WithMinStops sets the stop count a group needs for its own fit.
func WithMinStops(n int) Option {
	return func(m *Model) {
		if n > 0 {
			m.minStops = n
		}
	}
}

type groupKey struct {
	team  string
	track string
}

// Model holds fitted per-group Fisk parameters and per-track baselines.
type Model struct {
	minStops int

	baselines map[string]float64 // track -> 2.5% quantile
	groups    map[groupKey]model.PitStopParams
	tracks    map[string]model.PitStopParams
	global    model.PitStopParams
	fitted    bool
}

// New creates an unfitted model.
func New(opts ...Option) *Model {
	m := &Model{
		minStops:  defaultMinStops,
		baselines: make(map[string]float64),
		groups:    make(map[groupKey]model.PitStopParams),
		tracks:    make(map[string]model.PitStopParams),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Fit estimates track baselines and Fisk excess distributions from
// historical stationary times. Groups with too few stops are absorbed
// into the track pool; a team or track unseen at sampling time falls
// down the same chain, team-track then track then global.
func (m *Model) Fit(stops []history.PitStopObservation) error {
	usable := stops[:0:0]
	for _, s := range stops {
		if s.Stationary > 0 {
			usable = append(usable, s)
		}
	}
	if len(usable) == 0 {
		return ErrNoStops
	}

	byTrack := make(map[string][]float64)
	for _, s := range usable {
		byTrack[s.Track] = append(byTrack[s.Track], s.Stationary)
	}
	for track, times := range byTrack {
		sort.Float64s(times)
		m.baselines[track] = stat.Quantile(baselineQuantile, stat.Empirical, times, nil)
	}

	var globalExcess []float64
	trackExcess := make(map[string][]float64)
	groupExcess := make(map[groupKey][]float64)
	for _, s := range usable {
		e := s.Stationary - m.baselines[s.Track]
		if e <= 0 {
			continue
		}
		globalExcess = append(globalExcess, e)
		trackExcess[s.Track] = append(trackExcess[s.Track], e)
		key := groupKey{team: s.Team, track: s.Track}
		groupExcess[key] = append(groupExcess[key], e)
	}
	if len(globalExcess) < m.minStops {
		return fmt.Errorf("%w: only %d usable excess samples", ErrNoStops, len(globalExcess))
	}

	m.global = fitFisk(globalExcess, 0)
	for track, excess := range trackExcess {
		if len(excess) >= m.minStops {
			m.tracks[track] = fitFisk(excess, m.baselines[track])
		}
	}
	for key, excess := range groupExcess {
		if len(excess) >= m.minStops {
			m.groups[key] = fitFisk(excess, m.baselines[key.track])
		}
	}

	m.fitted = true
	return nil
}

// fitFisk estimates Fisk parameters by method of moments on the log
// scale. The log of a Fisk variate is logistic with location ln(scale)
// and scale 1/shape, so the log mean gives the scale and the log spread
// the shape.
func fitFisk(excess []float64, baseline float64) model.PitStopParams {
	logs := make([]float64, len(excess))
	for i, e := range excess {
		logs[i] = math.Log(e)
	}
	mean, std := stat.MeanStdDev(logs, nil)
	if math.IsNaN(std) || std < minLogSpread {
		std = minLogSpread
	}
	return model.PitStopParams{
		Baseline: baseline,
		Shape:    math.Pi / (math.Sqrt(3) * std),
		Scale:    math.Exp(mean),
	}
}

// Params returns the fitted parameters for the team at the track,
// walking the fallback chain for sparse or unseen groups.
func (m *Model) Params(team, track string) (model.PitStopParams, error) {
	if !m.fitted {
		return model.PitStopParams{}, ErrNotFitted
	}
	if p, ok := m.groups[groupKey{team: team, track: track}]; ok {
		return p, nil
	}
	if p, ok := m.tracks[track]; ok {
		return p, nil
	}
	p := m.global
	if b, ok := m.baselines[track]; ok {
		p.Baseline = b
	}
	return p, nil
}

// Annotate copies each team's fitted parameters for the track into the
// team entities held by the registry, so replay code reads them off the
// driver's team without a model lookup per stop.
func (m *Model) Annotate(reg *registry.Registry, track string) error {
	if !m.fitted {
		return ErrNotFitted
	}
	for _, name := range reg.Names() {
		team, ok := reg.Lookup(name)
		if !ok {
			continue
		}
		params, err := m.Params(name, track)
		if err != nil {
			return err
		}
		if team.PitStops == nil {
			team.PitStops = make(map[string]model.PitStopParams)
		}
		team.PitStops[track] = params
	}
	return nil
}

// SampleDuration draws one stationary time for the team at the track:
// the track baseline plus a Fisk excess via inverse transform,
// x = scale * (u / (1-u))^(1/shape). Pure query, only the rng advances.
func (m *Model) SampleDuration(team, track string, rng *rand.Rand) (float64, error) {
	params, err := m.Params(team, track)
	if err != nil {
		return 0, err
	}
	return SampleWith(params, rng), nil
}

// ScheduledStops validates a strategy against the race length and
// returns its ordered pit events. A malformed plan is a configuration
// error surfaced before any replay starts.
func ScheduledStops(s model.Strategy, plannedLaps int) ([]model.PitEvent, error) {
	if err := s.Validate(plannedLaps); err != nil {
		return nil, err
	}
	return s.Stops, nil
}

// SampleWith draws one stationary time from already-resolved parameters.
func SampleWith(params model.PitStopParams, rng *rand.Rand) float64 {
	u := rng.Float64()
	// Keep the inverse transform away from the pole at u=1.
	if u > 1-1e-12 {
		u = 1 - 1e-12
	}
	excess := params.Scale * math.Pow(u/(1-u), 1/params.Shape)
	return params.Baseline + excess
}
