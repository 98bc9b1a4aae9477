/*
ledger.go - Reconciliation ledger

PURPOSE:
  The Ledger accumulates what a distribution run did with every tip: how much
  was processed, how much went to each employee, and how much could not be
  attributed to anyone (overpaid). After the last tip is folded in, the ledger
  must balance exactly:

      Distributed + Overpaid == Processed   (within Epsilon)

  A ledger that does not balance is a bug in allocation arithmetic. It is a
  fatal error, not a warning.

CRITICAL INVARIANTS:
  1. ACCUMULATE ONLY: Post adds, nothing subtracts or edits a posting
  2. SINGLE WRITER AT A TIME: Post is mutex-guarded; per-employee totals are
     read-modify-write and must never be incremented concurrently unguarded
  3. REPLAYABLE: The same totals can be rebuilt from persisted Entries

ENTRIES:
  Each posting is also expressible as append-only Entries (one "processed",
  one "distributed" per paid employee, one "overpaid"). Stores persist
  entries, and Replay rebuilds a ledger from them so a stored run can be
  re-reconciled without re-running allocation.

SEE ALSO:
  - store.go: Entry persistence interface
  - tips/engine.go: Folds allocation records into a Ledger
*/
package generic

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultEpsilon absorbs rounding in the balance check: one cent.
var DefaultEpsilon = decimal.New(1, -2)

// =============================================================================
// POSTING - One employee's share of one tip
// =============================================================================

type Posting struct {
	EmployeeID EmployeeID
	Amount     Amount
}

// =============================================================================
// LEDGER - Mutex-guarded accumulator
// =============================================================================

type Ledger struct {
	mu sync.Mutex

	currency    Currency
	perEmployee map[EmployeeID]Amount
	counts      map[EmployeeID]int
	distributed Amount
	overpaid    Amount
	processed   Amount
	postings    int
}

func NewLedger(currency Currency) *Ledger {
	return &Ledger{
		currency:    currency,
		perEmployee: make(map[EmployeeID]Amount),
		counts:      make(map[EmployeeID]int),
		distributed: Zero(currency),
		overpaid:    Zero(currency),
		processed:   Zero(currency),
	}
}

// Post folds one tip into the ledger: the full tip as processed, each
// posting into its employee's total and into distributed, and the remainder
// the allocator could not attribute as overpaid.
func (l *Ledger) Post(processed Amount, postings []Posting, overpaid Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.processed = l.processed.Add(processed)
	l.overpaid = l.overpaid.Add(overpaid)
	for _, p := range postings {
		l.addLocked(p.EmployeeID, p.Amount)
	}
	l.postings++
}

func (l *Ledger) addLocked(id EmployeeID, amount Amount) {
	total, ok := l.perEmployee[id]
	if !ok {
		total = Zero(l.currency)
	}
	l.perEmployee[id] = total.Add(amount)
	l.counts[id]++
	l.distributed = l.distributed.Add(amount)
}

// Reconcile checks |Distributed + Overpaid - Processed| <= epsilon.
func (l *Ledger) Reconcile(epsilon decimal.Decimal) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	diff := l.distributed.Value.Add(l.overpaid.Value).Sub(l.processed.Value).Abs()
	if diff.GreaterThan(epsilon) {
		return &ReconciliationError{
			Distributed: l.distributed,
			Overpaid:    l.overpaid,
			Processed:   l.processed,
			Difference:  diff,
			Epsilon:     epsilon,
		}
	}
	return nil
}

// Snapshot returns a copy of the current totals.
func (l *Ledger) Snapshot() LedgerSnapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make([]EmployeeTotal, 0, len(l.perEmployee))
	for id, amt := range l.perEmployee {
		totals = append(totals, EmployeeTotal{EmployeeID: id, Total: amt, Postings: l.counts[id]})
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].EmployeeID < totals[j].EmployeeID
	})

	return LedgerSnapshot{
		Currency:         l.currency,
		Employees:        totals,
		TotalDistributed: l.distributed,
		TotalOverpaid:    l.overpaid,
		TotalProcessed:   l.processed,
		Tips:             l.postings,
	}
}

// LedgerSnapshot is the frozen result of a run. Employees are ordered by
// total descending, then by ID.
type LedgerSnapshot struct {
	Currency         Currency
	Employees        []EmployeeTotal
	TotalDistributed Amount
	TotalOverpaid    Amount
	TotalProcessed   Amount
	Tips             int
}

type EmployeeTotal struct {
	EmployeeID EmployeeID
	Total      Amount
	Postings   int
}

// TotalFor returns an employee's total, zero if they received nothing.
func (s LedgerSnapshot) TotalFor(id EmployeeID) Amount {
	for _, e := range s.Employees {
		if e.EmployeeID == id {
			return e.Total
		}
	}
	return Zero(s.Currency)
}

// =============================================================================
// ENTRIES - Persisted, append-only form of postings
// =============================================================================

type EntryKind string

const (
	EntryProcessed   EntryKind = "processed"
	EntryDistributed EntryKind = "distributed"
	EntryOverpaid    EntryKind = "overpaid"
)

// Entry is one immutable ledger line.
type Entry struct {
	ID             string
	RunID          RunID
	TransactionID  TransactionID
	EmployeeID     EmployeeID // empty for processed/overpaid
	Kind           EntryKind
	Amount         Amount
	EffectiveAt    time.Time
	IdempotencyKey string
}

// Replay rebuilds a ledger from entries.
func Replay(currency Currency, entries []Entry) *Ledger {
	l := NewLedger(currency)
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[TransactionID]bool)
	for _, e := range entries {
		switch e.Kind {
		case EntryProcessed:
			l.processed = l.processed.Add(e.Amount)
			if !seen[e.TransactionID] {
				seen[e.TransactionID] = true
				l.postings++
			}
		case EntryDistributed:
			l.addLocked(e.EmployeeID, e.Amount)
		case EntryOverpaid:
			l.overpaid = l.overpaid.Add(e.Amount)
		}
	}
	return l
}
