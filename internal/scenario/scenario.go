// Package scenario builds synthetic race configurations: a populated
// historical store, a team registry and a grid with strategies. It
// stands in for the external historical-data loader so the CLI and the
// larger tests can run a full simulation without a persisted store.
package scenario

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/registry"
)

// Generation ranges for the synthetic field.
const (
	racesPerSeason = 21
	seasons        = 3

	qualifyingBase   = 88.0 // seconds, quickest car
	teamSpread       = 1.6  // seconds between best and worst car
	driverSpread     = 0.4  // seconds between teammates
	qualifyingJitter = 0.15

	fuelCoefficient    = 0.03
	tireAgeCoefficient = 0.07
	lapNoise           = 0.35

	pitStopFloor = 2.1 // seconds stationary, best realistic stop
	pitFiskShape = 3.0
	stopsPerTeam = 40

	maxSeasonAccidents = 4
	maxSeasonFailures  = 3
)

// compoundOffsets is the pace penalty per compound relative to the
// softest in the pool.
var compoundOffsets = map[model.Compound]float64{
	model.CompoundA2: 0.0,
	model.CompoundA3: 0.4,
	model.CompoundA4: 0.9,
}

var racePool = []model.Compound{model.CompoundA2, model.CompoundA3, model.CompoundA4}

// Option applies a configuration option to the builder.
type Option func(*builder)

// WithTeams sets the number of teams (two drivers each).
func WithTeams(n int) Option {
	return func(b *builder) {
		if n > 0 {
			b.teams = n
		}
	}
}

// WithTrack sets the track name used throughout the scenario.
func WithTrack(track string) Option {
	return func(b *builder) {
		if track != "" {
			b.track = track
		}
	}
}

// WithPlannedLaps sets the race distance.
func WithPlannedLaps(laps int) Option {
	return func(b *builder) {
		if laps > 0 {
			b.plannedLaps = laps
		}
	}
}

// WithSeed seeds the generator, making the scenario reproducible.
func WithSeed(seed int64) Option {
	return func(b *builder) { b.seed = seed }
}

// Scenario is a complete simulation input set.
type Scenario struct {
	Meta     history.RaceMeta
	Store    *history.Store
	Registry *registry.Registry
	Entries  []*model.Entry
}

type builder struct {
	teams       int
	track       string
	plannedLaps int
	seed        int64
}

// Build generates a synthetic scenario. Qualifying pace orders the grid;
// fitted fields on the entries (baseline pace, accident probability) are
// left for the preparation step to fill from the store.
func Build(opts ...Option) (*Scenario, error) {
	b := &builder{teams: 10, track: "Interlagos", plannedLaps: 52, seed: 1}
	for _, opt := range opts {
		opt(b)
	}
	rng := rand.New(rand.NewSource(b.seed))

	store := history.NewStore()
	reg := registry.New()

	type seededDriver struct {
		id         string
		team       *model.Team
		qualifying float64
	}
	var field []seededDriver

	for t := 0; t < b.teams; t++ {
		teamName := fmt.Sprintf("team-%02d", t+1)
		team, err := reg.GetOrCreate(teamName)
		if err != nil {
			return nil, err
		}
		teamPace := 0.0
		if b.teams > 1 {
			teamPace = teamSpread * float64(t) / float64(b.teams-1)
		}

		b.generatePitStops(store, teamName, rng)

		for d := 0; d < 2; d++ {
			driverID := fmt.Sprintf("driver-%02d", t*2+d+1)
			qualifying := qualifyingBase + teamPace +
				driverSpread*float64(d) + rng.NormFloat64()*qualifyingJitter
			store.SetQualifyingTime(driverID, qualifying)

			b.generateRetirements(store, driverID, teamName, rng)
			b.generateLaps(store, driverID, qualifying, rng)

			field = append(field, seededDriver{id: driverID, team: team, qualifying: qualifying})
		}
	}

	// Grid order follows qualifying pace.
	for i := 1; i < len(field); i++ {
		for j := i; j > 0 && field[j].qualifying < field[j-1].qualifying; j-- {
			field[j], field[j-1] = field[j-1], field[j]
		}
	}

	meta := history.RaceMeta{
		Season:      2019,
		Track:       b.track,
		PlannedLaps: b.plannedLaps,
	}
	entries := make([]*model.Entry, 0, len(field))
	for pos, sd := range field {
		meta.Grid = append(meta.Grid, history.GridSlot{DriverID: sd.id, Position: pos + 1})
		entries = append(entries, &model.Entry{
			DriverID:     sd.id,
			Team:         sd.team,
			GridPosition: pos + 1,
			Strategy:     b.strategy(rng),
		})
	}

	return &Scenario{
		Meta:     meta,
		Store:    store,
		Registry: reg,
		Entries:  entries,
	}, nil
}

func (b *builder) generateRetirements(store *history.Store, driverID, team string, rng *rand.Rand) {
	for s := 0; s < seasons; s++ {
		store.AddRetirements(history.RetirementRecord{
			DriverID:  driverID,
			Team:      team,
			Season:    2019 - seasons + s + 1,
			Races:     racesPerSeason,
			Accidents: rng.Intn(maxSeasonAccidents),
			Failures:  rng.Intn(maxSeasonFailures),
		})
	}
}

// generateLaps synthesizes past race laps consistent with the pace model
// family: corrected time linear in fuel and tire age plus a compound
// offset and Gaussian noise.
func (b *builder) generateLaps(store *history.Store, driverID string, qualifying float64, rng *rand.Rand) {
	for race := 0; race < 2; race++ {
		compound := racePool[rng.Intn(len(racePool))]
		tireAge := 0
		for lap := 1; lap <= b.plannedLaps; lap++ {
			fuel := 100 * float64(b.plannedLaps-lap+1) / float64(b.plannedLaps)
			// One stop mid-race, fresh rubber one step harder.
			if lap == b.plannedLaps/2 {
				compound = harder(compound)
				tireAge = 0
			}
			corrected := 2.0 + fuelCoefficient*fuel +
				tireAgeCoefficient*float64(tireAge) +
				compoundOffsets[compound] +
				rng.NormFloat64()*lapNoise
			store.AddLaps(history.LapObservation{
				DriverID: driverID,
				Track:    b.track,
				Season:   2018 + race,
				Lap:      lap,
				LapTime:  qualifying + corrected,
				Baseline: qualifying,
				FuelLoad: fuel,
				TireAge:  tireAge,
				Compound: compound,
			})
			tireAge++
		}
	}
}

func (b *builder) generatePitStops(store *history.Store, team string, rng *rand.Rand) {
	// Slower garages get a wider excess distribution.
	scale := 0.5 + rng.Float64()*0.8
	for i := 0; i < stopsPerTeam; i++ {
		u := rng.Float64()
		if u > 1-1e-9 {
			u = 1 - 1e-9
		}
		excess := scale * math.Pow(u/(1-u), 1/pitFiskShape)
		store.AddPitStops(history.PitStopObservation{
			Team:       team,
			Track:      b.track,
			Season:     2019,
			Stationary: pitStopFloor + excess,
		})
	}
}

// strategy plans one or two stops with an opportunistic window leading
// into each planned lap.
func (b *builder) strategy(rng *rand.Rand) model.Strategy {
	stops := 1 + rng.Intn(2)
	s := model.Strategy{StartingCompound: racePool[rng.Intn(2)]}
	compound := s.StartingCompound
	prev := 1
	for i := 0; i < stops; i++ {
		lap := (i + 1) * b.plannedLaps / (stops + 1)
		lap += rng.Intn(5) - 2
		if lap <= prev {
			lap = prev + 1
		}
		if lap > b.plannedLaps {
			lap = b.plannedLaps
		}
		start := lap - 3
		if start < 1 {
			start = 1
		}
		compound = harder(compound)
		s.Stops = append(s.Stops, model.PitEvent{
			Lap:         lap,
			Compound:    compound,
			WindowStart: start,
			WindowEnd:   lap,
		})
		prev = lap
	}
	return s
}

func harder(c model.Compound) model.Compound {
	switch c {
	case model.CompoundA2:
		return model.CompoundA3
	default:
		return model.CompoundA4
	}
}
