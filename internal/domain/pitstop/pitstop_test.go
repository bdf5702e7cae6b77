package pitstop_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/apexsim/racesim/internal/domain/history"
	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/pitstop"
	"github.com/apexsim/racesim/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

// fiskStops generates stationary times as a floor plus Fisk excess with
// known parameters, so fitting can be checked against ground truth.
func fiskStops(team, track string, n int, floor, shape, scale float64, rng *rand.Rand) []history.PitStopObservation {
	stops := make([]history.PitStopObservation, 0, n)
	for i := 0; i < n; i++ {
		u := rng.Float64()
		excess := scale * math.Pow(u/(1-u), 1/shape)
		stops = append(stops, history.PitStopObservation{
			Team: team, Track: track, Season: 2019,
			Stationary: floor + excess,
		})
	}
	return stops
}

func TestFitAndSample(t *testing.T) {
	Convey("Given plentiful stops for two teams at one track", t, func() {
		rng := rand.New(rand.NewSource(1))
		m := pitstop.New()
		stops := fiskStops("quick", "Interlagos", 2000, 2.2, 3, 0.8, rng)
		stops = append(stops, fiskStops("slow", "Interlagos", 2000, 2.2, 3, 2.0, rng)...)
		So(m.Fit(stops), ShouldBeNil)

		Convey("Then both teams get their own parameters", func() {
			q, err := m.Params("quick", "Interlagos")
			So(err, ShouldBeNil)
			s, err := m.Params("slow", "Interlagos")
			So(err, ShouldBeNil)
			So(q.Scale, ShouldBeLessThan, s.Scale)
			So(q.Shape, ShouldBeGreaterThan, 0)
		})

		Convey("Then sampled durations sit above the track baseline", func() {
			q, err := m.Params("quick", "Interlagos")
			So(err, ShouldBeNil)
			for i := 0; i < 1000; i++ {
				d, err := m.SampleDuration("quick", "Interlagos", rng)
				So(err, ShouldBeNil)
				So(d, ShouldBeGreaterThan, q.Baseline)
			}
		})

		Convey("Then the slower team's median stop is slower", func() {
			median := func(team string) float64 {
				r := rand.New(rand.NewSource(9))
				var sum float64
				for i := 0; i < 5000; i++ {
					d, err := m.SampleDuration(team, "Interlagos", r)
					So(err, ShouldBeNil)
					sum += d
				}
				return sum / 5000
			}
			So(median("quick"), ShouldBeLessThan, median("slow"))
		})
	})
}

func TestFallbackChain(t *testing.T) {
	Convey("Given one team with depth at a track and another with a single stop", t, func() {
		rng := rand.New(rand.NewSource(2))
		m := pitstop.New()
		stops := fiskStops("deep", "Monza", 200, 2.4, 3, 1.0, rng)
		stops = append(stops, fiskStops("thin", "Monza", 1, 2.4, 3, 1.0, rng)...)
		So(m.Fit(stops), ShouldBeNil)

		Convey("Then the thin team resolves to the track pool", func() {
			thin, err := m.Params("thin", "Monza")
			So(err, ShouldBeNil)
			track, err := m.Params("nobody", "Monza")
			So(err, ShouldBeNil)
			So(thin, ShouldResemble, track)
		})

		Convey("Then an unseen track resolves to the global pool", func() {
			p, err := m.Params("deep", "Suzuka")
			So(err, ShouldBeNil)
			So(p.Shape, ShouldBeGreaterThan, 0)
			So(p.Scale, ShouldBeGreaterThan, 0)
		})
	})
}

func TestFitErrors(t *testing.T) {
	Convey("Given a pit stop model", t, func() {
		m := pitstop.New()

		Convey("When fitting with no stops", func() {
			So(m.Fit(nil), ShouldWrap, pitstop.ErrNoStops)
		})

		Convey("When sampling before fitting", func() {
			rng := rand.New(rand.NewSource(3))
			_, err := m.SampleDuration("quick", "Interlagos", rng)
			So(err, ShouldWrap, pitstop.ErrNotFitted)
		})
	})
}

func TestScheduledStops(t *testing.T) {
	Convey("Given a two-stop strategy", t, func() {
		s := model.Strategy{
			StartingCompound: model.CompoundA2,
			Stops: []model.PitEvent{
				{Lap: 18, Compound: model.CompoundA3},
				{Lap: 36, Compound: model.CompoundA4, WindowStart: 33, WindowEnd: 36},
			},
		}

		Convey("When the plan fits the race length", func() {
			stops, err := pitstop.ScheduledStops(s, 52)
			So(err, ShouldBeNil)
			So(stops, ShouldHaveLength, 2)
			So(stops[0].Lap, ShouldEqual, 18)
			So(stops[1].Compound, ShouldEqual, model.CompoundA4)
		})

		Convey("When a stop lies beyond the race length", func() {
			_, err := pitstop.ScheduledStops(s, 30)
			So(err, ShouldWrap, model.ErrStopOutOfRange)
		})
	})
}

func TestAnnotate(t *testing.T) {
	Convey("Given a fitted model and a registry of teams", t, func() {
		rng := rand.New(rand.NewSource(4))
		m := pitstop.New()
		So(m.Fit(fiskStops("quick", "Interlagos", 200, 2.2, 3, 0.8, rng)), ShouldBeNil)

		reg := registry.New()
		_, err := reg.GetOrCreate("quick")
		So(err, ShouldBeNil)
		_, err = reg.GetOrCreate("newcomers")
		So(err, ShouldBeNil)

		Convey("When annotating for the track", func() {
			So(m.Annotate(reg, "Interlagos"), ShouldBeNil)

			Convey("Then every team carries parameters for the track", func() {
				for _, name := range []string{"quick", "newcomers"} {
					team, ok := reg.Lookup(name)
					So(ok, ShouldBeTrue)
					params, ok := team.PitStops["Interlagos"]
					So(ok, ShouldBeTrue)
					So(params.Shape, ShouldBeGreaterThan, 0)
				}
			})
		})
	})
}
