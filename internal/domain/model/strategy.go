package model

import (
	"errors"
	"fmt"
)

// Strategy validation errors.
var (
	ErrUnknownCompound = errors.New("unknown compound")
	ErrStopOutOfRange  = errors.New("pit stop lap out of range")
	ErrStopsUnordered  = errors.New("pit stops not in ascending lap order")
)

// PitEvent is one planned stop: the target lap, the compound fitted at the
// stop, and an optional window in which the stop may be pulled forward when
// a caution makes a cheap stop available.
type PitEvent struct {
	Lap      int
	Compound Compound

	// WindowStart/WindowEnd bound the opportunistic window. Both zero
	// means no window; the stop happens exactly at Lap.
	WindowStart int
	WindowEnd   int
}

// Strategy is a driver's ordered pit plan, supplied externally and
// read-only to the engine.
type Strategy struct {
	StartingCompound Compound
	StartingTireAge  int
	Stops            []PitEvent
}

// Validate checks the strategy against the race length. A malformed
// strategy is a configuration error, not a modeled random event.
func (s Strategy) Validate(plannedLaps int) error {
	if !s.StartingCompound.Valid() {
		return fmt.Errorf("%w: starting compound %q", ErrUnknownCompound, s.StartingCompound)
	}
	prev := 0
	for i, stop := range s.Stops {
		if !stop.Compound.Valid() {
			return fmt.Errorf("%w: stop %d compound %q", ErrUnknownCompound, i+1, stop.Compound)
		}
		if stop.Lap < 1 || stop.Lap > plannedLaps {
			return fmt.Errorf("%w: stop %d at lap %d, race has %d laps", ErrStopOutOfRange, i+1, stop.Lap, plannedLaps)
		}
		if stop.Lap <= prev {
			return fmt.Errorf("%w: stop %d at lap %d follows lap %d", ErrStopsUnordered, i+1, stop.Lap, prev)
		}
		if stop.WindowStart != 0 || stop.WindowEnd != 0 {
			if stop.WindowStart > stop.Lap || stop.WindowEnd < stop.Lap {
				return fmt.Errorf("%w: stop %d window [%d,%d] does not contain lap %d",
					ErrStopOutOfRange, i+1, stop.WindowStart, stop.WindowEnd, stop.Lap)
			}
		}
		prev = stop.Lap
	}
	return nil
}
