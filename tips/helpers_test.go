package tips_test

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

const exemptName = "Pat Owner"

func testConfig() tips.Config {
	cfg := tips.DefaultConfig()
	cfg.ExemptEmployees = []string{exemptName}
	cfg.Workers = 4
	return cfg
}

// at returns 2025-03-10 hh:mm UTC.
func at(hh, mm int) time.Time {
	return time.Date(2025, time.March, 10, hh, mm, 0, 0, time.UTC)
}

func shift(first, last string, in, out time.Time) tips.RawShift {
	return tips.RawShift{FirstName: first, LastName: last, JobTitle: "Attendant", ClockIn: in, ClockOut: out}
}

func tipTx(id string, when time.Time, tip string) tips.TipTransaction {
	return tips.TipTransaction{
		TransactionID: generic.TransactionID(id),
		Timestamp:     when,
		Tip:           decimal.RequireFromString(tip),
	}
}

func booking(start time.Time, minutes float64) tips.RawBooking {
	return tips.RawBooking{Start: start, DurationMinutes: minutes}
}

func usd(s string) generic.Amount { return generic.MustAmount(s, generic.USD) }

func event(id string, when time.Time, tip string) tips.TipEvent {
	return tips.TipEvent{TransactionID: generic.TransactionID(id), Timestamp: when, Tip: usd(tip)}
}

func period() generic.Period {
	return generic.Period{
		Start: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, time.March, 10, 23, 59, 59, 999999999, time.UTC),
	}
}

// shareFor finds the share of the named employee.
func shareFor(rec tips.AllocationRecord, fullName string) (tips.Share, bool) {
	for _, s := range rec.Shares {
		if s.FullName == fullName {
			return s, true
		}
	}
	return tips.Share{}, false
}
