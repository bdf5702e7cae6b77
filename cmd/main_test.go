package main

import (
	"os"
	"testing"

	service "github.com/apexsim/racesim/internal/app"
	"github.com/apexsim/racesim/internal/config"
	"github.com/apexsim/racesim/internal/engine"
	"github.com/apexsim/racesim/internal/scenario"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigOverrides(t *testing.T) {
	convey.Convey("Given environment overrides", t, func() {
		_ = os.Setenv("RACESIM_ITERATIONS", "250")
		_ = os.Setenv("RACESIM_TRACK", "Monza")
		defer func() {
			_ = os.Unsetenv("RACESIM_ITERATIONS")
			_ = os.Unsetenv("RACESIM_TRACK")
		}()

		convey.Convey("Then configuration loads with them applied", func() {
			cfg, err := config.Load()
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Iterations, convey.ShouldEqual, 250)
			convey.So(cfg.Track, convey.ShouldEqual, "Monza")
		})
	})
}

func TestServiceWiring(t *testing.T) {
	convey.Convey("Given a config-shaped scenario", t, func() {
		cfg := config.New()
		sc, err := scenario.Build(
			scenario.WithTeams(3),
			scenario.WithTrack(cfg.Track),
			scenario.WithPlannedLaps(20),
			scenario.WithSeed(cfg.Seed))
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("Then the service builds from it", func() {
			svc, err := service.New(
				service.WithProvider(sc.Store),
				service.WithRegistry(sc.Registry),
				service.WithRace(sc.Meta),
				service.WithIterations(10),
				service.WithWorkers(2),
				service.WithSeed(cfg.Seed))
			convey.So(err, convey.ShouldBeNil)
			convey.So(svc, convey.ShouldNotBeNil)
		})
	})
}

func TestFormatRaceTime(t *testing.T) {
	convey.Convey("Given aggregated driver stats", t, func() {
		convey.Convey("Then a finisher's mean time renders as a duration", func() {
			got := formatRaceTime(engine.DriverStats{MeanTime: 5415.4})
			convey.So(got, convey.ShouldEqual, "1h30m15s")
		})

		convey.Convey("Then an always-DNF driver renders as a dash", func() {
			got := formatRaceTime(engine.DriverStats{})
			convey.So(got, convey.ShouldEqual, "-")
		})
	})
}
