package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/apexsim/racesim/internal/app"
	"github.com/apexsim/racesim/internal/config"
	"github.com/apexsim/racesim/internal/engine"
	"github.com/apexsim/racesim/internal/scenario"
	"github.com/apexsim/racesim/pkg/logger"
	"github.com/apexsim/racesim/pkg/metrics"
)

// Metrics server timeout constants.
const (
	readTimeout       = 5 * time.Second
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 2 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("racesim: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	if err := logger.Init(nil); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	log := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM; the Monte Carlo batch
	// stops at the next iteration boundary.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Optional Prometheus endpoint while the batch runs.
	if cfg.MetricsAddr != "" {
		srv := startMetricsServer(ctx, cfg.MetricsAddr, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	// The synthetic scenario stands in for a persisted historical store.
	sc, err := scenario.Build(
		scenario.WithTeams(cfg.Teams),
		scenario.WithTrack(cfg.Track),
		scenario.WithPlannedLaps(cfg.PlannedLaps),
		scenario.WithSeed(cfg.Seed))
	if err != nil {
		return fmt.Errorf("building scenario: %w", err)
	}

	svc, err := service.New(
		service.WithProvider(sc.Store),
		service.WithRegistry(sc.Registry),
		service.WithRace(sc.Meta),
		service.WithIterations(cfg.Iterations),
		service.WithWorkers(cfg.Workers),
		service.WithSeed(cfg.Seed),
		service.WithCautionProbability(cfg.CautionProbability),
		service.WithCautionLaps(cfg.CautionLaps),
		service.WithCautionFactor(cfg.CautionFactor),
		service.WithPitLaneLoss(cfg.PitLaneLoss),
		service.WithLapTimeFloor(cfg.LapTimeFloor),
		service.WithLogger(log))
	if err != nil {
		return err
	}

	if err := svc.Prepare(ctx, sc.Entries); err != nil {
		return fmt.Errorf("preparing simulation: %w", err)
	}
	result, err := svc.Simulate(ctx)
	if err != nil {
		return fmt.Errorf("running batch: %w", err)
	}

	printReport(cfg, result)
	return nil
}

func startMetricsServer(ctx context.Context, addr string, log logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	go func() {
		log.Info(ctx, "metrics endpoint up", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error(ctx, "metrics server failed", logger.Error(err))
		}
	}()
	return srv
}

func printReport(cfg *config.Config, result *service.Result) {
	fmt.Printf("race: %s, %d laps, %d iterations (batch %s, %s)\n\n",
		cfg.Track, cfg.PlannedLaps, result.Batch.Iterations,
		result.Batch.ID, result.Batch.Elapsed.Round(time.Millisecond))
	fmt.Printf("%-4s %-11s %9s %8s %5s %5s %8s %12s\n",
		"rank", "driver", "mean pos", "std", "best", "worst", "dnf", "mean time")
	for i, stats := range result.Stats {
		fmt.Printf("%-4d %-11s %9.2f %8.2f %5d %5d %7.1f%% %12s\n",
			i+1, stats.DriverID,
			stats.MeanPosition, stats.StdPosition,
			stats.BestPosition, stats.WorstPosition,
			stats.DNFRate*100, formatRaceTime(stats))
	}
}

func formatRaceTime(stats engine.DriverStats) string {
	if stats.MeanTime == 0 {
		return "-"
	}
	d := time.Duration(stats.MeanTime * float64(time.Second))
	return d.Round(time.Second).String()
}
