package model_test

import (
	"testing"

	"github.com/apexsim/racesim/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestStrategyValidate(t *testing.T) {
	Convey("Given a 50-lap race", t, func() {
		laps := 50

		Convey("When the strategy is well formed", func() {
			s := model.Strategy{
				StartingCompound: model.CompoundA3,
				Stops: []model.PitEvent{
					{Lap: 12, Compound: model.CompoundA2},
					{Lap: 30, Compound: model.CompoundA3, WindowStart: 26, WindowEnd: 34},
				},
			}

			Convey("Then validation passes", func() {
				So(s.Validate(laps), ShouldBeNil)
			})
		})

		Convey("When a stop uses an unknown compound", func() {
			s := model.Strategy{
				StartingCompound: model.CompoundA3,
				Stops:            []model.PitEvent{{Lap: 12, Compound: "X9"}},
			}

			Convey("Then validation fails with ErrUnknownCompound", func() {
				So(s.Validate(laps), ShouldWrap, model.ErrUnknownCompound)
			})
		})

		Convey("When a stop lap exceeds the race length", func() {
			s := model.Strategy{
				StartingCompound: model.CompoundA3,
				Stops:            []model.PitEvent{{Lap: 51, Compound: model.CompoundA2}},
			}

			Convey("Then validation fails with ErrStopOutOfRange", func() {
				So(s.Validate(laps), ShouldWrap, model.ErrStopOutOfRange)
			})
		})

		Convey("When stops are out of order", func() {
			s := model.Strategy{
				StartingCompound: model.CompoundA3,
				Stops: []model.PitEvent{
					{Lap: 30, Compound: model.CompoundA2},
					{Lap: 12, Compound: model.CompoundA3},
				},
			}

			Convey("Then validation fails with ErrStopsUnordered", func() {
				So(s.Validate(laps), ShouldWrap, model.ErrStopsUnordered)
			})
		})
	})
}

func TestDriverState(t *testing.T) {
	Convey("Given a fresh driver", t, func() {
		entry := &model.Entry{
			DriverID:       "44",
			Team:           model.NewTeam("Silver Arrows"),
			QualifyingTime: 88.5,
			Strategy: model.Strategy{
				StartingCompound: model.CompoundA4,
				StartingTireAge:  2,
			},
		}
		d := model.NewDriver(entry)

		Convey("Then it starts racing with full fuel and starting tires", func() {
			So(d.Racing(), ShouldBeTrue)
			So(d.FuelLoad, ShouldEqual, 100)
			So(d.Compound, ShouldEqual, model.CompoundA4)
			So(d.TireAge, ShouldEqual, 2)
		})

		Convey("When laps are recorded", func() {
			d.RecordLap(model.LapRecord{Lap: 1, LapTime: 90})
			d.RecordLap(model.LapRecord{Lap: 2, LapTime: 91})

			Convey("Then cumulative time is monotone and laps tracked", func() {
				So(d.CumulativeTime, ShouldEqual, 181)
				So(d.LapsCompleted, ShouldEqual, 2)
				So(d.Records[1].CumulativeTime, ShouldEqual, 181)
			})
		})

		Convey("When the driver retires", func() {
			d.Retire(7)

			Convey("Then the status is terminal with the DNF lap kept", func() {
				So(d.Racing(), ShouldBeFalse)
				So(d.Status, ShouldEqual, model.StatusRetired)
				So(d.DNFLap, ShouldEqual, 7)
			})
		})
	})
}

func TestClassify(t *testing.T) {
	Convey("Given a mixed field of finishers and retirees", t, func() {
		mk := func(id string, status model.DriverStatus, cum float64, laps, dnf int) *model.Driver {
			d := model.NewDriver(&model.Entry{
				DriverID: id,
				Strategy: model.Strategy{StartingCompound: model.CompoundA3},
			})
			d.Status = status
			d.CumulativeTime = cum
			d.LapsCompleted = laps
			d.DNFLap = dnf
			return d
		}
		drivers := []*model.Driver{
			mk("slow-finisher", model.StatusFinished, 5400, 50, 0),
			mk("winner", model.StatusFinished, 5300, 50, 0),
			mk("late-dnf", model.StatusRetired, 3000, 30, 31),
			mk("early-dnf", model.StatusRetired, 900, 9, 10),
			mk("same-laps-later-dnf", model.StatusRetired, 3100, 30, 40),
		}

		Convey("When classifying", func() {
			results := model.Classify(drivers)

			Convey("Then finishers rank first by cumulative time", func() {
				So(results[0].DriverID, ShouldEqual, "winner")
				So(results[1].DriverID, ShouldEqual, "slow-finisher")
			})

			Convey("And retirees order by laps desc then DNF lap asc", func() {
				So(results[2].DriverID, ShouldEqual, "late-dnf")
				So(results[3].DriverID, ShouldEqual, "same-laps-later-dnf")
				So(results[4].DriverID, ShouldEqual, "early-dnf")
			})

			Convey("And positions are contiguous from one", func() {
				for i, r := range results {
					So(r.Position, ShouldEqual, i+1)
				}
			})

			Convey("And no driver vanishes", func() {
				So(len(results), ShouldEqual, len(drivers))
			})
		})

		Convey("When two retirees tie on laps and DNF lap", func() {
			tied := []*model.Driver{
				mk("bravo", model.StatusRetired, 1000, 10, 11),
				mk("alpha", model.StatusRetired, 1000, 10, 11),
			}
			results := model.Classify(tied)

			Convey("Then driver ID breaks the tie deterministically", func() {
				So(results[0].DriverID, ShouldEqual, "alpha")
				So(results[1].DriverID, ShouldEqual, "bravo")
			})
		})
	})
}
