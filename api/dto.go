/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response and request item types
  - *Response: Complex response wrappers

MONEY:
  Amounts are rendered as fixed two-place decimal strings ("12.50"), never as
  JSON floats. Request tips accept either a JSON number or a string.

TIMES:
  RFC 3339 on the wire, in both directions.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// INPUTS
// =============================================================================

// ShiftDTO is one timecard row.
type ShiftDTO struct {
	EmployeeRef string    `json:"employee_ref,omitempty"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	JobTitle    string    `json:"job_title,omitempty"`
	ClockIn     time.Time `json:"clock_in"`
	ClockOut    time.Time `json:"clock_out"`
}

// TransactionDTO is one point-of-sale row.
type TransactionDTO struct {
	TransactionID string          `json:"transaction_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Tip           decimal.Decimal `json:"tip"`
	CustomerID    string          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerEmail string          `json:"customer_email,omitempty"`
}

// BookingDTO is one appointment row. A missing start is accepted and
// skipped at run time.
type BookingDTO struct {
	CustomerEmail   string     `json:"customer_email,omitempty"`
	FirstName       string     `json:"first_name,omitempty"`
	LastName        string     `json:"last_name,omitempty"`
	Start           *time.Time `json:"start,omitempty"`
	DurationMinutes float64    `json:"duration_minutes"`
}

// InsertedResponse acknowledges a bulk insert.
type InsertedResponse struct {
	Inserted int `json:"inserted"`
}

// InputBundle is a whole day of inputs in one document, as accepted by
// the import command.
type InputBundle struct {
	Shifts       []ShiftDTO       `json:"shifts"`
	Transactions []TransactionDTO `json:"transactions"`
	Bookings     []BookingDTO     `json:"bookings"`
}

// Input converts the bundle to engine input.
func (b InputBundle) Input() tips.Input {
	var in tips.Input
	for _, d := range b.Shifts {
		in.Shifts = append(in.Shifts, d.raw())
	}
	for _, d := range b.Transactions {
		in.Transactions = append(in.Transactions, d.raw())
	}
	for _, d := range b.Bookings {
		in.Bookings = append(in.Bookings, d.raw())
	}
	return in
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RUNS
// =============================================================================

// RunDTO summarizes one distribution run.
type RunDTO struct {
	ID          string         `json:"id"`
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Currency    string         `json:"currency"`
	Processed   string         `json:"processed"`
	Distributed string         `json:"distributed"`
	Overpaid    string         `json:"overpaid"`
	Tips        int            `json:"tips"`
	Diagnostics DiagnosticsDTO `json:"diagnostics"`
	CreatedAt   string         `json:"created_at"`
}

// DistributionResponse is returned by a new run: the summary plus payroll.
type DistributionResponse struct {
	RunDTO
	Payroll []PayrollLineDTO `json:"payroll"`
}

type DiagnosticsDTO struct {
	ShiftRows          int               `json:"shift_rows"`
	InvalidShifts      int               `json:"invalid_shifts"`
	Aliases            int               `json:"aliases"`
	TransactionRows    int               `json:"transaction_rows"`
	ZeroTips           int               `json:"zero_tips"`
	OutOfPeriod        int               `json:"out_of_period"`
	Duplicates         int               `json:"duplicates"`
	Refunds            int               `json:"refunds"`
	RefundTotal        string            `json:"refund_total"`
	Bookings           int               `json:"bookings"`
	DefaultedDurations int               `json:"defaulted_durations"`
	BookingMatched     int               `json:"booking_matched"`
	NoBookingMatch     int               `json:"no_booking_match"`
	Allocated          int               `json:"allocated"`
	FallbackEvenSplit  int               `json:"fallback_even_split"`
	NoEligibleWorker   int               `json:"no_eligible_worker"`
	NoWorkerFound      int               `json:"no_worker_found"`
	OverpaidByReason   map[string]string `json:"overpaid_by_reason"`
	Warnings           []WarningDTO      `json:"warnings"`
}

type WarningDTO struct {
	Kind           string   `json:"kind"`
	Count          int      `json:"count"`
	TransactionIDs []string `json:"transaction_ids,omitempty"`
}

// AllocationDTO is the audit record of one tip.
type AllocationDTO struct {
	TransactionID string      `json:"transaction_id"`
	Timestamp     string      `json:"timestamp"`
	Tip           string      `json:"tip"`
	Reason        string      `json:"reason"`
	Note          string      `json:"note,omitempty"`
	Booking       *BookingRef `json:"booking,omitempty"`
	WindowStart   string      `json:"window_start"`
	WindowEnd     string      `json:"window_end"`
	Distributed   string      `json:"distributed"`
	Overpaid      string      `json:"overpaid"`
	Shares        []ShareDTO  `json:"shares"`
}

type BookingRef struct {
	Start             string  `json:"start"`
	End               string  `json:"end"`
	DurationMinutes   float64 `json:"duration_minutes"`
	DurationDefaulted bool    `json:"duration_defaulted"`
	CustomerName      string  `json:"customer_name,omitempty"`
}

type ShareDTO struct {
	EmployeeID     string `json:"employee_id"`
	FullName       string `json:"full_name"`
	JobTitle       string `json:"job_title,omitempty"`
	ClockIn        string `json:"clock_in"`
	ClockOut       string `json:"clock_out"`
	OverlapPercent string `json:"overlap_percent"`
	Amount         string `json:"amount"`
	TipEligible    bool   `json:"tip_eligible"`
	Note           string `json:"note,omitempty"`
}

// PayrollLineDTO is one employee's total for a run.
type PayrollLineDTO struct {
	EmployeeID  string `json:"employee_id"`
	FullName    string `json:"full_name"`
	JobTitle    string `json:"job_title,omitempty"`
	TipEligible bool   `json:"tip_eligible"`
	Total       string `json:"total"`
	Shares      int    `json:"shares"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func money(a generic.Amount) string { return a.Value.StringFixed(2) }

func stamp(t time.Time) string { return t.Format(time.RFC3339) }

func (d ShiftDTO) raw() tips.RawShift {
	return tips.RawShift{
		EmployeeRef: d.EmployeeRef,
		FirstName:   d.FirstName,
		LastName:    d.LastName,
		JobTitle:    d.JobTitle,
		ClockIn:     d.ClockIn,
		ClockOut:    d.ClockOut,
	}
}

func toShiftDTO(r tips.RawShift) ShiftDTO {
	return ShiftDTO{
		EmployeeRef: r.EmployeeRef,
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		JobTitle:    r.JobTitle,
		ClockIn:     r.ClockIn,
		ClockOut:    r.ClockOut,
	}
}

func (d TransactionDTO) raw() tips.TipTransaction {
	return tips.TipTransaction{
		TransactionID: generic.TransactionID(d.TransactionID),
		Timestamp:     d.Timestamp,
		Tip:           d.Tip,
		CustomerID:    d.CustomerID,
		CustomerName:  d.CustomerName,
		CustomerEmail: d.CustomerEmail,
	}
}

func toTransactionDTO(r tips.TipTransaction) TransactionDTO {
	return TransactionDTO{
		TransactionID: string(r.TransactionID),
		Timestamp:     r.Timestamp,
		Tip:           r.Tip,
		CustomerID:    r.CustomerID,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
	}
}

func (d BookingDTO) raw() tips.RawBooking {
	b := tips.RawBooking{
		CustomerEmail:   d.CustomerEmail,
		FirstName:       d.FirstName,
		LastName:        d.LastName,
		DurationMinutes: d.DurationMinutes,
	}
	if d.Start != nil {
		b.Start = *d.Start
	}
	return b
}

func toBookingDTO(r tips.RawBooking) BookingDTO {
	d := BookingDTO{
		CustomerEmail:   r.CustomerEmail,
		FirstName:       r.FirstName,
		LastName:        r.LastName,
		DurationMinutes: r.DurationMinutes,
	}
	if !r.Start.IsZero() {
		start := r.Start
		d.Start = &start
	}
	return d
}

func toRunDTO(r sqlite.RunRecord) RunDTO {
	return RunDTO{
		ID:          string(r.ID),
		PeriodStart: stamp(r.Period.Start),
		PeriodEnd:   stamp(r.Period.End),
		Currency:    string(r.Currency),
		Processed:   money(r.Processed),
		Distributed: money(r.Distributed),
		Overpaid:    money(r.Overpaid),
		Tips:        r.Tips,
		Diagnostics: toDiagnosticsDTO(r.Diagnostics),
		CreatedAt:   stamp(r.CreatedAt),
	}
}

// DistributionSummary renders a fresh run with its payroll.
func DistributionSummary(d *tips.Distribution) DistributionResponse {
	run := sqlite.RunRecord{
		ID:          d.ID,
		Period:      d.Period,
		Currency:    d.Currency,
		Processed:   d.Ledger.TotalProcessed,
		Distributed: d.Ledger.TotalDistributed,
		Overpaid:    d.Ledger.TotalOverpaid,
		Tips:        d.Ledger.Tips,
		Diagnostics: d.Diagnostics,
		CreatedAt:   d.CreatedAt,
	}
	return DistributionResponse{
		RunDTO:  toRunDTO(run),
		Payroll: toPayrollDTOs(d.Payroll()),
	}
}

func toDiagnosticsDTO(d tips.Diagnostics) DiagnosticsDTO {
	overpaid := make(map[string]string, len(d.OverpaidByReason))
	for reason, amt := range d.OverpaidByReason {
		overpaid[string(reason)] = money(amt)
	}
	warnings := make([]WarningDTO, 0, len(d.Warnings))
	for _, w := range d.Warnings {
		dto := WarningDTO{Kind: string(w.Kind), Count: w.Count}
		for _, id := range w.TransactionIDs {
			dto.TransactionIDs = append(dto.TransactionIDs, string(id))
		}
		warnings = append(warnings, dto)
	}
	return DiagnosticsDTO{
		ShiftRows:          d.Roster.Rows,
		InvalidShifts:      d.Roster.Invalid,
		Aliases:            d.Roster.Aliases,
		TransactionRows:    d.Tips.Rows,
		ZeroTips:           d.Tips.ZeroTip,
		OutOfPeriod:        d.Tips.OutOfPeriod,
		Duplicates:         d.Tips.Duplicates,
		Refunds:            d.Tips.Refunds,
		RefundTotal:        money(d.Tips.RefundTotal),
		Bookings:           d.Bookings.Bookings,
		DefaultedDurations: d.Bookings.DefaultedDuration,
		BookingMatched:     d.BookingMatched,
		NoBookingMatch:     d.NoBookingMatch,
		Allocated:          d.Allocated,
		FallbackEvenSplit:  d.FallbackEvenSplit,
		NoEligibleWorker:   d.NoEligibleWorker,
		NoWorkerFound:      d.NoWorkerFound,
		OverpaidByReason:   overpaid,
		Warnings:           warnings,
	}
}

func toAllocationDTO(rec tips.AllocationRecord) AllocationDTO {
	dto := AllocationDTO{
		TransactionID: string(rec.Event.TransactionID),
		Timestamp:     stamp(rec.Event.Timestamp),
		Tip:           money(rec.Event.Tip),
		Reason:        string(rec.Reason),
		Note:          rec.Note,
		WindowStart:   stamp(rec.Window.Start),
		WindowEnd:     stamp(rec.Window.End),
		Distributed:   money(rec.Distributed()),
		Overpaid:      money(rec.Overpaid),
		Shares:        make([]ShareDTO, 0, len(rec.Shares)),
	}
	if b := rec.Booking; b != nil {
		dto.Booking = &BookingRef{
			Start:             stamp(b.Start),
			End:               stamp(b.End),
			DurationMinutes:   b.DurationMinutes,
			DurationDefaulted: b.DurationDefaulted,
			CustomerName:      b.Customer.Name,
		}
	}
	for _, s := range rec.Shares {
		dto.Shares = append(dto.Shares, ShareDTO{
			EmployeeID:     string(s.EmployeeID),
			FullName:       s.FullName,
			JobTitle:       s.JobTitle,
			ClockIn:        stamp(s.ClockIn),
			ClockOut:       stamp(s.ClockOut),
			OverlapPercent: s.OverlapPercent.StringFixed(2),
			Amount:         money(s.Amount),
			TipEligible:    s.TipEligible,
			Note:           s.Note,
		})
	}
	return dto
}

func toPayrollDTOs(lines []tips.PayrollLine) []PayrollLineDTO {
	out := make([]PayrollLineDTO, 0, len(lines))
	for _, l := range lines {
		out = append(out, PayrollLineDTO{
			EmployeeID:  string(l.EmployeeID),
			FullName:    l.FullName,
			JobTitle:    l.JobTitle,
			TipEligible: l.TipEligible,
			Total:       money(l.Total),
			Shares:      l.Shares,
		})
	}
	return out
}

// StoredSummary renders a stored run with its payroll.
func StoredSummary(run sqlite.RunRecord, payroll []tips.PayrollLine) DistributionResponse {
	return DistributionResponse{
		RunDTO:  toRunDTO(run),
		Payroll: toPayrollDTOs(payroll),
	}
}

// AllocationSummaries renders per-tip audit records.
func AllocationSummaries(records []tips.AllocationRecord) []AllocationDTO {
	out := make([]AllocationDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toAllocationDTO(rec))
	}
	return out
}
