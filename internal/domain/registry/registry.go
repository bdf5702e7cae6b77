// Package registry deduplicates team entities by name.
//
// The registry is populated during data preparation and frozen before
// simulation starts; from then on it is shared read-only across parallel
// replays. It is passed explicitly into the components that need it,
// never kept as a hidden global.
package registry

import (
	"errors"
	"fmt"
	"sync"

	"github.com/apexsim/racesim/internal/domain/model"
)

// ErrFrozen is returned when a new team is requested after Freeze.
var ErrFrozen = errors.New("team registry is frozen")

// Registry maps team names to their single shared Team entity.
type Registry struct {
	mu     sync.RWMutex
	teams  map[string]*model.Team
	frozen bool
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{teams: make(map[string]*model.Team)}
}

// GetOrCreate returns the team for name, creating it on first sight.
// Creation fails once the registry is frozen.
func (r *Registry) GetOrCreate(name string) (*model.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.teams[name]; ok {
		return t, nil
	}
	if r.frozen {
		return nil, fmt.Errorf("%w: cannot create team %q", ErrFrozen, name)
	}
	t := model.NewTeam(name)
	r.teams[name] = t
	return t, nil
}

// Lookup returns the team for name, or false when absent.
func (r *Registry) Lookup(name string) (*model.Team, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.teams[name]
	return t, ok
}

// Freeze marks the registry read-only. Intended to be called once data
// preparation is complete, before any replay starts.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Names returns the registered team names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.teams))
	for n := range r.teams {
		names = append(names, n)
	}
	return names
}

// Len returns the number of distinct teams.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.teams)
}
