package generic

import "time"

// =============================================================================
// PERIOD - The analysis window for one distribution run
// =============================================================================

// Period is the inclusive [Start, End] window a distribution run looks at.
// It is derived from the data (the extent of all shifts), never configured,
// and is the only filter applied to tips and bookings.
type Period struct {
	Start time.Time
	End   time.Time
}

// PeriodSpanning widens [earliest, latest] to whole calendar days in loc:
// midnight of earliest's date through the last instant of latest's date.
func PeriodSpanning(earliest, latest time.Time, loc *time.Location) (Period, error) {
	if latest.Before(earliest) {
		return Period{}, ErrInvalidPeriod
	}
	return Period{
		Start: StartOfDay(earliest, loc),
		End:   EndOfDay(latest, loc),
	}, nil
}

// Contains returns true if t is within the period [Start, End]
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && !t.After(p.End)
}

// Days returns the number of calendar days the period covers.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Round(24*time.Hour) / (24 * time.Hour))
}

func (p Period) Interval() Interval { return Interval{Start: p.Start, End: p.End} }

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.Format("2006-01-02") + ", " + p.End.Format("2006-01-02") + "]"
}
