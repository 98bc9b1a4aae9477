/*
store.go - Persistence interface for ledger entries

PURPOSE:
  Defines the interface between the ledger and the database. The Store keeps
  append-only ledger entries for every distribution run so that a stored run
  can be replayed and re-reconciled long after it was computed.

APPEND-ONLY CONTRACT:
  - AppendBatch(): Atomic multi-entry write (one run at a time)
  - NO Update() or Delete() methods exist

IDEMPOTENCY:
  Every entry carries an idempotency key derived from run, transaction, kind
  and employee. Writing a batch containing a known key is rejected as a whole.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - ledger.go: Replay rebuilds totals from loaded entries
*/
package generic

import "context"

// Store handles persistence of ledger entries.
// IMPORTANT: Store is APPEND-ONLY. No Update, No Delete.
type Store interface {
	// AppendBatch persists entries atomically. Either all succeed or none do.
	AppendBatch(ctx context.Context, entries []Entry) error

	// Load returns all entries of a run in insertion order.
	Load(ctx context.Context, runID RunID) ([]Entry, error)

	// Exists checks if idempotency key already exists.
	Exists(ctx context.Context, idempotencyKey string) (bool, error)
}
