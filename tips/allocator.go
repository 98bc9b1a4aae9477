/*
allocator.go - Splitting one tip among the employees who earned it

PURPOSE:
  Turns (tip event, matched booking, roster) into an AllocationRecord. The
  allocator is pure: it reads immutable shifts and bookings and returns a
  new record, so it is safe to call from many goroutines at once.

CASE A - BOOKING MATCHED:
  Work window = [booking start, payment instant]. The window ends at the
  payment, not at the booking's nominal end: work after payment is not paid
  from this tip.

    overlap  = max(0, min(windowEnd, clockOut) - max(windowStart, clockIn))
    percent  = overlap / window * 100      (zero overlaps are dropped)
    share    = tip * percent / sum(eligible percents)

  A zero-length window (payment at the booking start) gives 100% to every
  shift covering that instant.

CASE B - NO BOOKING:
  Everyone clocked in at the payment instant, split evenly among the
  eligible ones. There is no duration to weight by.

OVERPAID:
  If nobody was working (NO_WORKER_FOUND) or only exempt employees were
  (NO_ELIGIBLE_WORKER), the whole tip is overpaid. Exempt employees who
  worked are always listed with a zero amount and a note.

EXACTNESS:
  Every share but the last is rounded to the cent and the last eligible
  share takes the residual, so shares always sum to the tip exactly and
  payroll totals print without drift.

SEE ALSO:
  - matcher.go: Finds the booking
  - engine.go: Folds records into the ledger
*/
package tips

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
)

var hundred = decimal.NewFromInt(100)

const exemptNote = "Not tip-eligible (exempt)"

type Allocator struct {
	Roster *Roster
}

func NewAllocator(roster *Roster) *Allocator {
	return &Allocator{Roster: roster}
}

// Allocate produces the record for one tip event. booking may be nil.
func (a *Allocator) Allocate(event TipEvent, booking *Booking) AllocationRecord {
	if booking == nil {
		return a.allocateFallback(event)
	}
	return a.allocateWindow(event, *booking)
}

// =============================================================================
// CASE A - OVERLAP-WEIGHTED
// =============================================================================

func (a *Allocator) allocateWindow(event TipEvent, booking Booking) AllocationRecord {
	window := WorkWindow{Start: booking.Start, End: event.Timestamp}
	rec := AllocationRecord{
		Event:    event,
		Booking:  &booking,
		Window:   window,
		Overpaid: event.Tip.Zero(),
	}

	var shares []Share
	if window.IsInstant() {
		for _, s := range a.Roster.WorkingAt(event.Timestamp) {
			shares = append(shares, newShare(s, hundred, event.Tip))
		}
	} else {
		total := decimal.NewFromInt(int64(window.Duration()))
		for _, o := range a.Roster.WorkingDuring(window.Interval()) {
			pct := decimal.NewFromInt(int64(o.Overlap)).Div(total).Mul(hundred)
			shares = append(shares, newShare(o.Shift, pct, event.Tip))
		}
	}

	if len(shares) == 0 {
		return overpaid(rec, ReasonNoWorkerFound, "No employees working from booking start to payment time")
	}
	rec.Shares = shares

	eligible := eligibleIndexes(shares)
	if len(eligible) == 0 {
		return overpaid(rec, ReasonNoEligibleWorker, "Only exempt employees worked from booking start to payment time")
	}

	weights := make([]decimal.Decimal, len(eligible))
	for i, idx := range eligible {
		weights[i] = shares[idx].OverlapPercent
	}
	amounts := splitWeighted(event.Tip, weights)
	for i, idx := range eligible {
		rec.Shares[idx].Amount = amounts[i]
	}
	rec.Reason = ReasonAllocated
	return rec
}

// =============================================================================
// CASE B - EVEN SPLIT AT THE PAYMENT INSTANT
// =============================================================================

func (a *Allocator) allocateFallback(event TipEvent) AllocationRecord {
	rec := AllocationRecord{
		Event:    event,
		Window:   WorkWindow{Start: event.Timestamp, End: event.Timestamp},
		Overpaid: event.Tip.Zero(),
	}

	working := a.Roster.WorkingAt(event.Timestamp)
	if len(working) == 0 {
		return overpaid(rec, ReasonNoWorkerFound, "No booking found and no employees clocked in at payment time")
	}

	shares := make([]Share, 0, len(working))
	for _, s := range working {
		shares = append(shares, newShare(s, hundred, event.Tip))
	}
	rec.Shares = shares

	eligible := eligibleIndexes(shares)
	if len(eligible) == 0 {
		return overpaid(rec, ReasonNoEligibleWorker, "No booking found and only exempt employees clocked in")
	}

	amounts := splitEven(event.Tip, len(eligible))
	for i, idx := range eligible {
		rec.Shares[idx].Amount = amounts[i]
	}
	rec.Reason = ReasonFallbackEvenSplit
	rec.Note = fmt.Sprintf("No booking found - split evenly among %d clocked-in employee(s)", len(eligible))
	return rec
}

// =============================================================================
// HELPERS
// =============================================================================

func newShare(s Shift, pct decimal.Decimal, tip generic.Amount) Share {
	share := Share{
		EmployeeID:     s.EmployeeID,
		FullName:       s.FullName,
		JobTitle:       s.JobTitle,
		ClockIn:        s.ClockIn,
		ClockOut:       s.ClockOut,
		OverlapPercent: pct,
		Amount:         tip.Zero(),
		TipEligible:    s.TipEligible,
	}
	if !s.TipEligible {
		share.Note = exemptNote
	}
	return share
}

func overpaid(rec AllocationRecord, reason ReasonCode, note string) AllocationRecord {
	rec.Overpaid = rec.Event.Tip
	rec.Reason = reason
	rec.Note = note
	return rec
}

func eligibleIndexes(shares []Share) []int {
	var out []int
	for i, s := range shares {
		if s.TipEligible {
			out = append(out, i)
		}
	}
	return out
}

// splitWeighted divides total in proportion to weights, rounding each part to
// the cent. The last part takes the residual so the parts sum to total exactly.
func splitWeighted(total generic.Amount, weights []decimal.Decimal) []generic.Amount {
	if len(weights) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, w := range weights {
		sum = sum.Add(w)
	}
	out := make([]generic.Amount, len(weights))
	if sum.IsZero() {
		return splitEven(total, len(weights))
	}
	allocated := total.Zero()
	for i, w := range weights {
		if i == len(weights)-1 {
			out[i] = total.Sub(allocated)
			break
		}
		out[i] = total.Mul(w).Div(sum).Cents()
		allocated = allocated.Add(out[i])
	}
	return out
}

// splitEven divides total into n equal parts, last part takes the residual.
func splitEven(total generic.Amount, n int) []generic.Amount {
	weights := make([]decimal.Decimal, n)
	for i := range weights {
		weights[i] = decimal.NewFromInt(1)
	}
	return splitWeighted(total, weights)
}
