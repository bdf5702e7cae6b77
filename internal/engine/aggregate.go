package engine

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/apexsim/racesim/internal/domain/model"
)

// DriverStats is one driver's empirical outcome distribution across a
// batch of replays.
type DriverStats struct {
	DriverID string

	Replays int
	DNFs    int
	DNFRate float64

	MeanPosition  float64
	StdPosition   float64
	BestPosition  int
	WorstPosition int

	// PositionCounts is the finishing-position histogram over all
	// replays, DNF classifications included.
	PositionCounts map[int]int

	// Race-time moments are taken over finishing replays only; a DNF
	// cumulative time is not comparable with a full race distance.
	MeanTime float64
	StdTime  float64
}

// Aggregate reduces a batch of outcomes into per-driver distributions,
// sorted by mean finishing position.
func Aggregate(outcomes []model.RaceOutcome) []DriverStats {
	positions := make(map[string][]float64)
	times := make(map[string][]float64)
	dnfs := make(map[string]int)
	counts := make(map[string]map[int]int)

	for _, outcome := range outcomes {
		for _, res := range outcome.Classification {
			positions[res.DriverID] = append(positions[res.DriverID], float64(res.Position))
			if counts[res.DriverID] == nil {
				counts[res.DriverID] = make(map[int]int)
			}
			counts[res.DriverID][res.Position]++
			if res.Status == model.StatusRetired {
				dnfs[res.DriverID]++
			} else {
				times[res.DriverID] = append(times[res.DriverID], res.CumulativeTime)
			}
		}
	}

	stats := make([]DriverStats, 0, len(positions))
	for driverID, pos := range positions {
		s := DriverStats{
			DriverID:       driverID,
			Replays:        len(pos),
			DNFs:           dnfs[driverID],
			DNFRate:        float64(dnfs[driverID]) / float64(len(pos)),
			PositionCounts: counts[driverID],
			BestPosition:   int(pos[0]),
			WorstPosition:  int(pos[0]),
		}
		for _, p := range pos {
			if int(p) < s.BestPosition {
				s.BestPosition = int(p)
			}
			if int(p) > s.WorstPosition {
				s.WorstPosition = int(p)
			}
		}
		s.MeanPosition, s.StdPosition = stat.MeanStdDev(pos, nil)
		if len(pos) < 2 {
			s.StdPosition = 0
		}
		if t := times[driverID]; len(t) > 0 {
			s.MeanTime, s.StdTime = stat.MeanStdDev(t, nil)
			if len(t) < 2 {
				s.StdTime = 0
			}
		}
		stats = append(stats, s)
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].MeanPosition != stats[j].MeanPosition {
			return stats[i].MeanPosition < stats[j].MeanPosition
		}
		return stats[i].DriverID < stats[j].DriverID
	})
	return stats
}
