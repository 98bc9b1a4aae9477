/*
Package tips implements tip distribution on top of the generic engine.

PURPOSE:
  Given staff shifts, tip-bearing transactions and service bookings, decide
  for every tip which employees were working, in what proportion, and how
  much of the tip each one earned, and prove that every dollar collected is
  either distributed or explicitly accounted as overpaid.

PIPELINE:
  1. Roster:           raw shifts -> typed shifts + employee registry
  2. ResolvePayPeriod: extent of all shifts -> [start, end]
  3. CollectTipEvents: raw transactions -> deduplicated tip events in period
  4. BookingIndex:     raw bookings -> booking intervals in period
  5. Matcher:          tip event -> most relevant booking (or none)
  6. Allocator:        tip event + booking + roster -> AllocationRecord
  7. Engine:           fold records into a generic.Ledger and reconcile

KEY CONCEPTS IN THIS FILE (types.go):
  - Raw inputs (RawShift, TipTransaction, RawBooking): what the import layer hands us
  - Typed values (Shift, TipEvent, Booking): what the engine works on
  - AllocationRecord: the audit trail for one tip

SEE ALSO:
  - engine.go: Runs the pipeline
  - allocator.go: The split rules
*/
package tips

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
)

// =============================================================================
// RAW INPUTS - Shapes handed over by the import/storage layer
// =============================================================================

// RawShift is one timecard row.
type RawShift struct {
	EmployeeRef string // optional stable ID from the timecard system
	FirstName   string
	LastName    string
	JobTitle    string
	ClockIn     time.Time
	ClockOut    time.Time
}

// FullName joins first and last name the way timecards display them.
func (r RawShift) FullName() string {
	return normalizeSpaces(r.FirstName + " " + r.LastName)
}

// TipTransaction is one point-of-sale row carrying a tip.
type TipTransaction struct {
	TransactionID generic.TransactionID
	Timestamp     time.Time
	Tip           decimal.Decimal
	CustomerID    string
	CustomerName  string
	CustomerEmail string
}

// RawBooking is one booking-system row.
type RawBooking struct {
	CustomerEmail   string
	FirstName       string
	LastName        string
	Start           time.Time
	DurationMinutes float64
}

// =============================================================================
// TYPED VALUES
// =============================================================================

// Employee is a registry entry built once by the Roster.
type Employee struct {
	ID          generic.EmployeeID
	FullName    string
	JobTitle    string
	TipEligible bool
}

// Shift is a contiguous clock-in/clock-out interval for one employee.
// Invariant: ClockIn < ClockOut.
type Shift struct {
	EmployeeID  generic.EmployeeID
	FullName    string
	JobTitle    string
	ClockIn     time.Time
	ClockOut    time.Time
	TipEligible bool
}

func (s Shift) Interval() generic.Interval { return generic.NewInterval(s.ClockIn, s.ClockOut) }

// Customer is the identity attached to a transaction or booking. It is not a
// reliable join key and the default matcher ignores it.
type Customer struct {
	ID    string
	Name  string
	Email string
}

// TipEvent is one non-zero tip inside the pay period. Tip may be negative
// (refunds and voids).
type TipEvent struct {
	TransactionID generic.TransactionID
	Timestamp     time.Time
	Tip           generic.Amount
	Customer      Customer
}

func (e TipEvent) IsRefund() bool { return e.Tip.IsNegative() }

// Booking is a service reservation interval. Invariant: End = Start + DurationMinutes.
type Booking struct {
	Customer          Customer
	Start             time.Time
	End               time.Time
	DurationMinutes   float64
	DurationDefaulted bool
}

func (b Booking) Interval() generic.Interval { return generic.NewInterval(b.Start, b.End) }

// WorkWindow is the span over which shift overlap is measured for one tip:
// booking start through the payment instant, or just the payment instant
// when no booking matched.
type WorkWindow struct {
	Start time.Time
	End   time.Time
}

func (w WorkWindow) Interval() generic.Interval { return generic.NewInterval(w.Start, w.End) }
func (w WorkWindow) Duration() time.Duration    { return w.End.Sub(w.Start) }
func (w WorkWindow) IsInstant() bool            { return w.Start.Equal(w.End) }

// =============================================================================
// ALLOCATION RECORD - Audit trail for one tip
// =============================================================================

type ReasonCode string

const (
	ReasonAllocated         ReasonCode = "ALLOCATED"
	ReasonFallbackEvenSplit ReasonCode = "FALLBACK_EVEN_SPLIT"
	ReasonNoEligibleWorker  ReasonCode = "NO_ELIGIBLE_WORKER"
	ReasonNoWorkerFound     ReasonCode = "NO_WORKER_FOUND"
)

// IsOverpaid returns true for reasons that route the whole tip to overpaid.
func (r ReasonCode) IsOverpaid() bool {
	return r == ReasonNoEligibleWorker || r == ReasonNoWorkerFound
}

// Share is one working shift's line in an allocation.
type Share struct {
	EmployeeID     generic.EmployeeID
	FullName       string
	JobTitle       string
	ClockIn        time.Time
	ClockOut       time.Time
	OverlapPercent decimal.Decimal
	Amount         generic.Amount
	TipEligible    bool
	Note           string
}

// AllocationRecord is produced once per tip event and never mutated.
type AllocationRecord struct {
	Event    TipEvent
	Booking  *Booking // nil when no booking matched
	Window   WorkWindow
	Shares   []Share
	Overpaid generic.Amount
	Reason   ReasonCode
	Note     string
}

// Distributed sums the amounts paid to employees.
func (r AllocationRecord) Distributed() generic.Amount {
	total := r.Event.Tip.Zero()
	for _, s := range r.Shares {
		total = total.Add(s.Amount)
	}
	return total
}

// Postings returns the eligible shares as ledger postings.
func (r AllocationRecord) Postings() []generic.Posting {
	var out []generic.Posting
	for _, s := range r.Shares {
		if !s.TipEligible || r.Reason.IsOverpaid() {
			continue
		}
		out = append(out, generic.Posting{EmployeeID: s.EmployeeID, Amount: s.Amount})
	}
	return out
}
