package engine_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/internal/domain/pace"
	"github.com/apexsim/racesim/internal/engine"
	. "github.com/smartystreets/goconvey/convey"
)

func newBatch(t *testing.T, ret engine.RetirementSampler, p engine.LapTimePredictor, opts ...engine.BatchOption) *engine.MonteCarlo {
	t.Helper()
	e := newEngine(t, ret, p, engine.WithPlannedLaps(50))
	mc, err := engine.NewMonteCarlo(e, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return mc
}

func TestDNFRateConvergence(t *testing.T) {
	Convey("Given driver C with a 0.5 per-race failure probability", t, func() {
		mc := newBatch(t,
			hazardRetirement{driverID: "C", perRace: 0.5},
			newStubPace(90),
			engine.WithIterations(1000),
			engine.WithWorkers(4),
			engine.WithSeed(1))

		Convey("When running 1000 iterations", func() {
			result, err := mc.RunBatch(context.Background(), entries())
			So(err, ShouldBeNil)
			So(result.Outcomes, ShouldHaveLength, 1000)

			Convey("Then C's empirical DNF rate converges to 0.5", func() {
				stats := engine.Aggregate(result.Outcomes)
				var c engine.DriverStats
				for _, s := range stats {
					if s.DriverID == "C" {
						c = s
					}
				}
				So(c.Replays, ShouldEqual, 1000)
				So(c.DNFRate, ShouldAlmostEqual, 0.5, 0.05)
			})
		})
	})
}

func TestBatchIndependence(t *testing.T) {
	Convey("Given a model with non-degenerate variance", t, func() {
		mc := newBatch(t,
			hazardRetirement{driverID: "C", perRace: 0.5},
			newStubPace(90),
			engine.WithIterations(200),
			engine.WithWorkers(4),
			engine.WithSeed(7))

		Convey("When running a batch", func() {
			result, err := mc.RunBatch(context.Background(), entries())
			So(err, ShouldBeNil)

			Convey("Then outcomes keep their iteration order", func() {
				for i, outcome := range result.Outcomes {
					So(outcome.ReplayIndex, ShouldEqual, i)
				}
			})

			Convey("Then not every iteration ends the same way", func() {
				dnfLaps := make(map[int]bool)
				for _, outcome := range result.Outcomes {
					for _, res := range outcome.Classification {
						if res.DriverID == "C" {
							dnfLaps[res.DNFLap] = true
						}
					}
				}
				So(len(dnfLaps), ShouldBeGreaterThan, 1)
			})
		})

		Convey("When running the same batch twice", func() {
			first, err := mc.RunBatch(context.Background(), entries())
			So(err, ShouldBeNil)
			second, err := mc.RunBatch(context.Background(), entries())
			So(err, ShouldBeNil)

			Convey("Then the seeded streams reproduce the outcomes", func() {
				So(first.Outcomes, ShouldResemble, second.Outcomes)
			})
		})
	})
}

func TestBatchFailure(t *testing.T) {
	Convey("Given a driver without a lap-time fit", t, func() {
		broken := newStubPace(90)
		broken.failFor = "B"
		mc := newBatch(t, newStubRetirement(), broken,
			engine.WithIterations(100),
			engine.WithWorkers(4))

		Convey("When running a batch", func() {
			result, err := mc.RunBatch(context.Background(), entries())

			Convey("Then the whole batch fails, no partial results", func() {
				So(err, ShouldWrap, pace.ErrDriverNotFitted)
				So(result, ShouldBeNil)
			})
		})
	})
}

func TestBatchCancellation(t *testing.T) {
	Convey("Given an already-cancelled context", t, func() {
		mc := newBatch(t, newStubRetirement(), newStubPace(90),
			engine.WithIterations(100))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Convey("When running a batch", func() {
			result, err := mc.RunBatch(ctx, entries())

			Convey("Then the cancellation surfaces as the batch error", func() {
				So(err, ShouldWrap, context.Canceled)
				So(result, ShouldBeNil)
			})
		})
	})
}

func TestAggregate(t *testing.T) {
	Convey("Given hand-built outcomes", t, func() {
		outcomes := []model.RaceOutcome{
			{
				ReplayIndex: 0,
				Classification: []model.DriverResult{
					{DriverID: "A", Position: 1, Status: model.StatusFinished, CumulativeTime: 450},
					{DriverID: "B", Position: 2, Status: model.StatusFinished, CumulativeTime: 460},
				},
			},
			{
				ReplayIndex: 1,
				Classification: []model.DriverResult{
					{DriverID: "B", Position: 1, Status: model.StatusFinished, CumulativeTime: 440},
					{DriverID: "A", Position: 2, Status: model.StatusRetired, DNFLap: 30, LapsCompleted: 29},
				},
			},
		}

		Convey("When aggregating", func() {
			stats := engine.Aggregate(outcomes)
			So(stats, ShouldHaveLength, 2)

			byID := make(map[string]engine.DriverStats)
			for _, s := range stats {
				byID[s.DriverID] = s
			}

			Convey("Then per-driver moments and histograms are correct", func() {
				a := byID["A"]
				So(a.MeanPosition, ShouldAlmostEqual, 1.5, 1e-9)
				So(a.BestPosition, ShouldEqual, 1)
				So(a.WorstPosition, ShouldEqual, 2)
				So(a.PositionCounts[1], ShouldEqual, 1)
				So(a.PositionCounts[2], ShouldEqual, 1)
				So(a.DNFRate, ShouldAlmostEqual, 0.5, 1e-9)
				// Race-time mean covers the finishing replay only.
				So(a.MeanTime, ShouldAlmostEqual, 450, 1e-9)

				b := byID["B"]
				So(b.DNFRate, ShouldEqual, 0)
				So(b.MeanTime, ShouldAlmostEqual, 450, 1e-9)
			})

			Convey("Then the ranking is by mean position", func() {
				So(stats[0].MeanPosition, ShouldBeLessThanOrEqualTo, stats[1].MeanPosition)
			})
		})
	})
}

// Guards the documented stream-splitting scheme: iteration i must draw
// from a stream seeded base+i, so a single iteration can be reproduced
// standalone.
func TestIterationStreamSplitting(t *testing.T) {
	Convey("Given a batch seeded at 100", t, func() {
		ret := hazardRetirement{driverID: "C", perRace: 0.9}
		mc := newBatch(t, ret, newStubPace(90),
			engine.WithIterations(5),
			engine.WithWorkers(1),
			engine.WithSeed(100))

		Convey("When replay 3 is re-run standalone with seed 103", func() {
			batch, err := mc.RunBatch(context.Background(), entries())
			So(err, ShouldBeNil)

			e := newEngine(t, ret, newStubPace(90), engine.WithPlannedLaps(50))
			solo, err := e.Run(3, entries(), rand.New(rand.NewSource(103)))
			So(err, ShouldBeNil)

			Convey("Then it reproduces the batch outcome", func() {
				So(solo, ShouldResemble, batch.Outcomes[3])
			})
		})
	})
}
