package model

import "sort"

// CautionPeriod is a race-wide interval during which every driver's lap
// time is slowed by a common factor.
type CautionPeriod struct {
	StartLap int
	EndLap   int
}

// Active reports whether lap falls inside the period.
func (c CautionPeriod) Active(lap int) bool {
	return lap >= c.StartLap && lap <= c.EndLap
}

// DriverResult is one driver's line in the final classification.
type DriverResult struct {
	DriverID       string
	Position       int
	Status         DriverStatus
	CumulativeTime float64
	LapsCompleted  int
	DNFLap         int // zero unless retired
}

// RaceOutcome is the final classification of a single replay.
type RaceOutcome struct {
	ReplayIndex    int
	CautionLaps    int
	Classification []DriverResult
}

// Classify derives the final order from a completed replay.
// Finishers rank first, by cumulative time ascending. Retirees follow,
// ordered by laps completed descending, then DNF lap ascending, then
// driver ID ascending as the final deterministic tie-break.
func Classify(drivers []*Driver) []DriverResult {
	results := make([]DriverResult, 0, len(drivers))
	for _, d := range drivers {
		results = append(results, DriverResult{
			DriverID:       d.Entry.DriverID,
			Status:         d.Status,
			CumulativeTime: d.CumulativeTime,
			LapsCompleted:  d.LapsCompleted,
			DNFLap:         d.DNFLap,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		aFin := a.Status == StatusFinished
		bFin := b.Status == StatusFinished
		if aFin != bFin {
			return aFin
		}
		if aFin {
			if a.CumulativeTime != b.CumulativeTime {
				return a.CumulativeTime < b.CumulativeTime
			}
			return a.DriverID < b.DriverID
		}
		if a.LapsCompleted != b.LapsCompleted {
			return a.LapsCompleted > b.LapsCompleted
		}
		if a.DNFLap != b.DNFLap {
			return a.DNFLap < b.DNFLap
		}
		return a.DriverID < b.DriverID
	})
	for i := range results {
		results[i].Position = i + 1
	}
	return results
}
