package tips

import (
	"time"

	"github.com/warp/tip-engine/generic"
)

// ResolvePayPeriod derives the analysis window from the extent of all
// shifts: midnight of the earliest clock-in date through the end of the
// latest clock-out date, in loc. An empty roster is a ConfigurationError.
func ResolvePayPeriod(roster *Roster, loc *time.Location) (generic.Period, error) {
	earliest, latest, ok := roster.Extent()
	if !ok {
		return generic.Period{}, &generic.ConfigurationError{
			Reason: "no analyzable pay period",
			Err:    generic.ErrNoShifts,
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	return generic.PeriodSpanning(earliest, latest, loc)
}
