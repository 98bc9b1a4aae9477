/*
engine.go - One distribution run, end to end

PURPOSE:
  Runs the whole pipeline as a single-pass batch: load everything, resolve
  the pay period, collect tips and bookings, allocate every tip, fold the
  records into a ledger, and reconcile.

CONCURRENCY:
  Allocation is an embarrassingly parallel map: each tip reads only the
  immutable roster and booking index and writes its own slot of the result
  slice. A bounded worker pool does the map. The ledger is then updated by a
  single sequential fold over the results in tip order, so per-employee
  totals are never incremented concurrently and output order is stable.

FAILURE:
  - Empty roster: ConfigurationError, nothing is allocated
  - Ledger does not balance: ReconciliationError, the Distribution is not
    returned and must not be reported
  - ctx cancelled: ctx.Err()
  Everything else (duplicates, missing bookings, no eligible worker) is a
  counted warning that lands in Diagnostics and the affected records.

SEE ALSO:
  - allocator.go: The per-tip rules
  - generic/ledger.go: Reconcile
*/
package tips

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/tip-engine/generic"
)

// Input is the full data set for one run.
type Input struct {
	Shifts       []RawShift
	Transactions []TipTransaction
	Bookings     []RawBooking
}

// Diagnostics counts every non-fatal condition of a run.
type Diagnostics struct {
	Roster   RosterStats
	Tips     CollectStats
	Bookings BookingStats

	BookingMatched    int
	NoBookingMatch    int
	Allocated         int
	FallbackEvenSplit int
	NoEligibleWorker  int
	NoWorkerFound     int

	OverpaidByReason map[ReasonCode]generic.Amount
	Warnings         []Warning
}

// Distribution is the result of a successful run.
type Distribution struct {
	ID          generic.RunID
	Period      generic.Period
	Currency    generic.Currency
	Records     []AllocationRecord
	Ledger      generic.LedgerSnapshot
	Employees   []Employee
	Diagnostics Diagnostics
	CreatedAt   time.Time
}

type Engine struct {
	Config  Config
	Matcher Matcher
	Logger  *slog.Logger

	now func() time.Time
}

// NewEngine builds an engine; the matcher comes from cfg.Matcher.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.ExemptEmployees) == 0 {
		logger.Warn("no exempt employee configured, every employee is tip-eligible")
	}
	return &Engine{
		Config:  cfg,
		Matcher: NewMatcher(cfg),
		Logger:  logger,
		now:     time.Now,
	}, nil
}

// Run executes one distribution over in.
func (e *Engine) Run(ctx context.Context, in Input) (*Distribution, error) {
	cfg := e.Config
	currency := cfg.currency()

	roster := NewRoster(in.Shifts, cfg)
	e.Logger.Info("shifts loaded", "rows", len(in.Shifts), "valid", roster.Len(), "invalid", roster.Stats().Invalid)

	period, err := ResolvePayPeriod(roster, cfg.location())
	if err != nil {
		return nil, err
	}
	e.Logger.Info("pay period resolved", "start", period.Start, "end", period.End)

	events, collected := CollectTipEvents(in.Transactions, period, currency, e.Logger)
	bookings := NewBookingIndex(in.Bookings, period, cfg)
	if n := bookings.Stats().DefaultedDuration; n > 0 {
		e.Logger.Warn("bookings with missing or invalid duration defaulted",
			"count", n, "default", cfg.DefaultBookingDuration)
	}
	e.Logger.Info("inputs collected",
		"tip_events", len(events),
		"duplicates", collected.Duplicates,
		"bookings", bookings.Len())

	records, err := e.allocateAll(ctx, events, roster, bookings)
	if err != nil {
		return nil, err
	}

	ledger := generic.NewLedger(currency)
	diag := Diagnostics{
		Roster:           roster.Stats(),
		Tips:             collected,
		Bookings:         bookings.Stats(),
		OverpaidByReason: make(map[ReasonCode]generic.Amount),
	}
	for _, rec := range records {
		ledger.Post(rec.Event.Tip, rec.Postings(), rec.Overpaid)
		diag.observe(rec)
	}

	diag.Warnings = warningsFor(diag, records)
	for _, w := range diag.Warnings {
		e.Logger.Warn("data quality", "kind", w.Kind, "count", w.Count)
	}

	snap := ledger.Snapshot()
	if err := ledger.Reconcile(cfg.Epsilon); err != nil {
		e.Logger.Error("tip ledger does not balance", "error", err)
		return nil, fmt.Errorf("distribution aborted: %w", err)
	}

	e.Logger.Info("tips balance",
		"processed", snap.TotalProcessed.Value.StringFixed(2),
		"distributed", snap.TotalDistributed.Value.StringFixed(2),
		"overpaid", snap.TotalOverpaid.Value.StringFixed(2),
		"booking_matched", diag.BookingMatched,
		"no_booking", diag.NoBookingMatch,
		"no_eligible_worker", diag.NoEligibleWorker,
		"no_worker_found", diag.NoWorkerFound)

	return &Distribution{
		ID:          generic.RunID(uuid.NewString()),
		Period:      period,
		Currency:    currency,
		Records:     records,
		Ledger:      snap,
		Employees:   roster.Employees(),
		Diagnostics: diag,
		CreatedAt:   e.now().UTC(),
	}, nil
}

// allocateAll maps events to records on a bounded worker pool. Output order
// matches events.
func (e *Engine) allocateAll(ctx context.Context, events []TipEvent, roster *Roster, bookings *BookingIndex) ([]AllocationRecord, error) {
	records := make([]AllocationRecord, len(events))
	if len(events) == 0 {
		return records, ctx.Err()
	}

	allocator := NewAllocator(roster)
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := e.Config.workers()
	if workers > len(events) {
		workers = len(events)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				booking := e.Matcher.Match(events[i], bookings)
				records[i] = allocator.Allocate(events[i], booking)
			}
		}()
	}

	var err error
feed:
	for i := range events {
		if err = ctx.Err(); err != nil {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break feed
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (d *Diagnostics) observe(rec AllocationRecord) {
	if rec.Booking != nil {
		d.BookingMatched++
	} else {
		d.NoBookingMatch++
	}
	switch rec.Reason {
	case ReasonAllocated:
		d.Allocated++
	case ReasonFallbackEvenSplit:
		d.FallbackEvenSplit++
	case ReasonNoEligibleWorker:
		d.NoEligibleWorker++
	case ReasonNoWorkerFound:
		d.NoWorkerFound++
	}
	if rec.Reason.IsOverpaid() {
		total, ok := d.OverpaidByReason[rec.Reason]
		if !ok {
			total = rec.Overpaid.Zero()
		}
		d.OverpaidByReason[rec.Reason] = total.Add(rec.Overpaid)
	}
}

// =============================================================================
// PAYROLL SUMMARY
// =============================================================================

// PayrollLine is one employee's row in the payroll artifact.
type PayrollLine struct {
	EmployeeID  generic.EmployeeID
	FullName    string
	JobTitle    string
	TipEligible bool
	Total       generic.Amount
	Shares      int // paid shares across all tips
}

// Payroll lists every employee on the roster with their distributed total,
// highest first. Exempt employees appear with zero.
func (d *Distribution) Payroll() []PayrollLine {
	lines := make([]PayrollLine, 0, len(d.Employees))
	counts := make(map[generic.EmployeeID]int, len(d.Ledger.Employees))
	for _, t := range d.Ledger.Employees {
		counts[t.EmployeeID] = t.Postings
	}
	for _, emp := range d.Employees {
		lines = append(lines, PayrollLine{
			EmployeeID:  emp.ID,
			FullName:    emp.FullName,
			JobTitle:    emp.JobTitle,
			TipEligible: emp.TipEligible,
			Total:       d.Ledger.TotalFor(emp.ID),
			Shares:      counts[emp.ID],
		})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Total.GreaterThan(lines[j].Total)
	})
	return lines
}

// Entries expresses the run as append-only ledger entries for persistence.
func (d *Distribution) Entries() []generic.Entry {
	var out []generic.Entry
	for seq, rec := range d.Records {
		base := fmt.Sprintf("%s:%d:%s", d.ID, seq, rec.Event.TransactionID)
		out = append(out, generic.Entry{
			ID:             uuid.NewString(),
			RunID:          d.ID,
			TransactionID:  rec.Event.TransactionID,
			Kind:           generic.EntryProcessed,
			Amount:         rec.Event.Tip,
			EffectiveAt:    rec.Event.Timestamp,
			IdempotencyKey: base + ":processed",
		})
		for i, p := range rec.Postings() {
			out = append(out, generic.Entry{
				ID:             uuid.NewString(),
				RunID:          d.ID,
				TransactionID:  rec.Event.TransactionID,
				EmployeeID:     p.EmployeeID,
				Kind:           generic.EntryDistributed,
				Amount:         p.Amount,
				EffectiveAt:    rec.Event.Timestamp,
				IdempotencyKey: fmt.Sprintf("%s:distributed:%s:%d", base, p.EmployeeID, i),
			})
		}
		if !rec.Overpaid.IsZero() {
			out = append(out, generic.Entry{
				ID:             uuid.NewString(),
				RunID:          d.ID,
				TransactionID:  rec.Event.TransactionID,
				Kind:           generic.EntryOverpaid,
				Amount:         rec.Overpaid,
				EffectiveAt:    rec.Event.Timestamp,
				IdempotencyKey: base + ":overpaid",
			})
		}
	}
	return out
}
