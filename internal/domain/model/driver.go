package model

// DriverStatus is the per-replay lifecycle state of a driver.
// Retired and Finished are terminal.
type DriverStatus int

const (
	StatusRacing DriverStatus = iota
	StatusRetired
	StatusFinished
)

func (s DriverStatus) String() string {
	switch s {
	case StatusRacing:
		return "racing"
	case StatusRetired:
		return "retired"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Entry is the static, per-race description of one competitor: everything
// the engine needs to construct a fresh Driver for each replay.
type Entry struct {
	DriverID     string
	Team         *Team
	GridPosition int

	// QualifyingTime is the baseline pace in seconds. The pace model
	// predicts a delta on top of it.
	QualifyingTime float64

	// AccidentProbability is the fitted per-race accident probability.
	AccidentProbability float64

	Strategy Strategy
}

// LapRecord is one simulated (driver, lap) row, append-only during a replay.
type LapRecord struct {
	Lap            int
	LapTime        float64
	CumulativeTime float64
	Compound       Compound
	TireAge        int
	Pitted         bool
	UnderCaution   bool
}

// Driver is the mutable per-replay state, advanced once per lap by the
// engine and frozen once retired or finished.
type Driver struct {
	Entry *Entry

	Status         DriverStatus
	LapsCompleted  int
	CumulativeTime float64

	Compound Compound
	TireAge  int
	FuelLoad float64 // 100 at the start, linear burn to 0

	NextStop int // index into Entry.Strategy.Stops
	DNFLap   int // valid when Status == StatusRetired

	Records []LapRecord
}

// NewDriver builds the lap-zero state for one replay of entry.
func NewDriver(entry *Entry) *Driver {
	return &Driver{
		Entry:    entry,
		Status:   StatusRacing,
		Compound: entry.Strategy.StartingCompound,
		TireAge:  entry.Strategy.StartingTireAge,
		FuelLoad: 100,
	}
}

// Racing reports whether the driver is still advancing through laps.
func (d *Driver) Racing() bool { return d.Status == StatusRacing }

// Retire marks the driver out of the race at lap. No further LapRecords
// are produced for a retired driver.
func (d *Driver) Retire(lap int) {
	d.Status = StatusRetired
	d.DNFLap = lap
}

// RecordLap appends the lap row and advances cumulative state.
// Lap times are non-negative by the engine's clamping, so cumulative
// time is monotonically non-decreasing.
func (d *Driver) RecordLap(rec LapRecord) {
	d.CumulativeTime += rec.LapTime
	rec.CumulativeTime = d.CumulativeTime
	d.Records = append(d.Records, rec)
	d.LapsCompleted = rec.Lap
}
