package generic

import (
	"time"
)

// =============================================================================
// INTERVAL - Closed time range [Start, End]
// =============================================================================

// Interval is a closed time range. Shifts, bookings and work windows are all
// intervals; a zero-length interval (Start == End) is a single instant.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) Interval { return Interval{Start: start, End: end} }

// Instant returns the zero-length interval at t.
func Instant(t time.Time) Interval { return Interval{Start: t, End: t} }

func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }
func (iv Interval) IsInstant() bool         { return iv.Start.Equal(iv.End) }
func (iv Interval) IsValid() bool           { return !iv.End.Before(iv.Start) }

// Contains reports whether t lies in [Start, End], both ends inclusive.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && !t.After(iv.End)
}

// Overlap returns max(0, min(End) - max(Start)).
func (iv Interval) Overlap(other Interval) time.Duration {
	start := iv.Start
	if other.Start.After(start) {
		start = other.Start
	}
	end := iv.End
	if other.End.Before(end) {
		end = other.End
	}
	if !end.After(start) {
		return 0
	}
	return end.Sub(start)
}

// DistanceTo returns how far t lies outside the interval: zero when contained,
// Start - t when before, t - End when after.
func (iv Interval) DistanceTo(t time.Time) time.Duration {
	switch {
	case t.Before(iv.Start):
		return iv.Start.Sub(t)
	case t.After(iv.End):
		return t.Sub(iv.End)
	default:
		return 0
	}
}

func (iv Interval) String() string {
	return "[" + iv.Start.Format(time.RFC3339) + ", " + iv.End.Format(time.RFC3339) + "]"
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

// StartOfDay returns midnight of t's calendar date in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last representable instant of t's calendar date in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// SameDay reports whether a and b fall on the same calendar date in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}
