package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/apexsim/racesim/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given a clean environment", t, func() {
		os.Unsetenv("RACESIM_CONFIG")
		os.Unsetenv("RACESIM_ITERATIONS")
		os.Unsetenv("RACESIM_CAUTION_FACTOR")
		os.Unsetenv("RACESIM_LOG_LEVEL")

		Convey("When loading with no overrides", func() {
			cfg, err := config.Load()

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(cfg.Iterations, ShouldEqual, 1000)
				So(cfg.CautionLaps, ShouldEqual, 5)
				So(cfg.CautionFactor, ShouldEqual, 1.2)
				So(cfg.LogLevel, ShouldEqual, "info")
			})
		})

		Convey("When environment variables override defaults", func() {
			os.Setenv("RACESIM_ITERATIONS", "250")
			os.Setenv("RACESIM_LOG_LEVEL", "debug")
			defer os.Unsetenv("RACESIM_ITERATIONS")
			defer os.Unsetenv("RACESIM_LOG_LEVEL")

			cfg, err := config.Load()

			Convey("Then the env values win", func() {
				So(err, ShouldBeNil)
				So(cfg.Iterations, ShouldEqual, 250)
				So(cfg.LogLevel, ShouldEqual, "debug")
			})
		})

		Convey("When a YAML file is provided", func() {
			dir := t.TempDir()
			path := filepath.Join(dir, "racesim.yaml")
			So(os.WriteFile(path, []byte("iterations: 42\nseed: 99\n"), 0o600), ShouldBeNil)
			os.Setenv("RACESIM_CONFIG", path)
			defer os.Unsetenv("RACESIM_CONFIG")

			cfg, err := config.Load()

			Convey("Then file values layer over defaults", func() {
				So(err, ShouldBeNil)
				So(cfg.Iterations, ShouldEqual, 42)
				So(cfg.Seed, ShouldEqual, 99)
				So(cfg.CautionLaps, ShouldEqual, 5)
			})

			Convey("And env still wins over the file", func() {
				os.Setenv("RACESIM_ITERATIONS", "7")
				defer os.Unsetenv("RACESIM_ITERATIONS")

				cfg, err := config.Load()
				So(err, ShouldBeNil)
				So(cfg.Iterations, ShouldEqual, 7)
			})
		})

		Convey("When the file path does not exist", func() {
			os.Setenv("RACESIM_CONFIG", "/does/not/exist.yaml")
			defer os.Unsetenv("RACESIM_CONFIG")

			_, err := config.Load()

			Convey("Then a load error is returned", func() {
				So(errors.Is(err, config.ErrLoadConfig), ShouldBeTrue)
			})
		})

		Convey("When a value is out of range", func() {
			os.Setenv("RACESIM_CAUTION_FACTOR", "0.5")
			defer os.Unsetenv("RACESIM_CAUTION_FACTOR")

			_, err := config.Load()

			Convey("Then validation rejects it", func() {
				So(errors.Is(err, config.ErrInvalidConfig), ShouldBeTrue)
			})
		})
	})
}
