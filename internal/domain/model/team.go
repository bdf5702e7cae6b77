// Package model contains the race domain entities shared between the
// fitted sub-models and the engine.
package model

// PitStopParams holds a team's fitted pit-stop distribution at one track:
// the baseline stationary time plus a Fisk (log-logistic) law over the excess.
type PitStopParams struct {
	Baseline float64 // best-case stationary time, seconds
	Shape    float64 // Fisk shape (c)
	Scale    float64 // Fisk scale
}

// Team is the shared, registry-deduplicated team entity. It is populated
// during fitting and treated as read-only once simulation starts.
type Team struct {
	Name string

	// FailureProbability is the per-race mechanical failure probability
	// fitted from historical retirements.
	FailureProbability float64

	// PitStops maps track name to fitted pit-stop parameters.
	PitStops map[string]PitStopParams
}

// NewTeam creates a team entity with empty statistics.
func NewTeam(name string) *Team {
	return &Team{
		Name:     name,
		PitStops: make(map[string]PitStopParams),
	}
}
