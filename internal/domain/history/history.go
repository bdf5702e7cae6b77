// Package history defines the historical-data provider contract the
// fitted sub-models consume, plus an in-memory implementation.
//
// Loading raw records from a persisted store is a collaborator concern;
// this package only shapes already-loaded observations.
package history

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/apexsim/racesim/internal/domain/model"
)

// ErrNoQualifying is returned when neither the driver nor the field has
// any qualifying time on record.
var ErrNoQualifying = errors.New("no qualifying time on record")

// RetirementRecord summarizes one driver-season: races entered and how
// many ended in an accident or a mechanical failure.
type RetirementRecord struct {
	DriverID  string
	Team      string
	Season    int
	Races     int
	Accidents int
	Failures  int
}

// LapObservation is one historical racing lap with the explanatory
// variables the pace model regresses on.
type LapObservation struct {
	DriverID string
	Track    string
	Season   int
	Lap      int
	LapTime  float64 // seconds
	Baseline float64 // best qualifying lap of that race, seconds
	FuelLoad float64 // 100 at lights out, linear to 0
	TireAge  int
	Compound model.Compound
}

// PitStopObservation is one historical stationary time.
type PitStopObservation struct {
	Team       string
	Track      string
	Season     int
	Stationary float64 // seconds in the pit box
}

// GridSlot places a driver on the starting grid.
type GridSlot struct {
	DriverID string
	Position int
}

// RaceMeta describes the race to simulate.
type RaceMeta struct {
	Season      int
	Track       string
	PlannedLaps int
	Grid        []GridSlot
}

// Provider exposes the pre-shaped historical inputs the models fit on.
// Implementations must be safe for concurrent reads after population.
type Provider interface {
	Retirements(ctx context.Context) ([]RetirementRecord, error)
	Laps(ctx context.Context) ([]LapObservation, error)
	PitStops(ctx context.Context) ([]PitStopObservation, error)

	// QualifyingTime returns the driver's best qualifying lap. When the
	// driver has none, the field average stands in; ErrNoQualifying is
	// returned only when nobody qualified.
	QualifyingTime(ctx context.Context, driverID string) (float64, error)
}

// Store is the in-memory Provider used by tests and the scenario builder.
type Store struct {
	mu          sync.RWMutex
	retirements []RetirementRecord
	laps        []LapObservation
	pitStops    []PitStopObservation
	qualifying  map[string]float64
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{qualifying: make(map[string]float64)}
}

// AddRetirements appends driver-season retirement summaries.
func (s *Store) AddRetirements(records ...RetirementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.retirements = append(s.retirements, records...)
}

// AddLaps appends historical lap observations.
func (s *Store) AddLaps(laps ...LapObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.laps = append(s.laps, laps...)
}

// AddPitStops appends historical stationary times.
func (s *Store) AddPitStops(stops ...PitStopObservation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pitStops = append(s.pitStops, stops...)
}

// SetQualifyingTime records a driver's best qualifying lap.
func (s *Store) SetQualifyingTime(driverID string, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.qualifying[driverID] = seconds
}

// Retirements implements Provider.
func (s *Store) Retirements(_ context.Context) ([]RetirementRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RetirementRecord, len(s.retirements))
	copy(out, s.retirements)
	return out, nil
}

// Laps implements Provider.
func (s *Store) Laps(_ context.Context) ([]LapObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]LapObservation, len(s.laps))
	copy(out, s.laps)
	return out, nil
}

// PitStops implements Provider.
func (s *Store) PitStops(_ context.Context) ([]PitStopObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PitStopObservation, len(s.pitStops))
	copy(out, s.pitStops)
	return out, nil
}

// QualifyingTime implements Provider with the field-average fallback.
func (s *Store) QualifyingTime(_ context.Context, driverID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if t, ok := s.qualifying[driverID]; ok {
		return t, nil
	}
	if len(s.qualifying) == 0 {
		return 0, fmt.Errorf("%w: driver %q", ErrNoQualifying, driverID)
	}
	var sum float64
	for _, t := range s.qualifying {
		sum += t
	}
	return sum / float64(len(s.qualifying)), nil
}
