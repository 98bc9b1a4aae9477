/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Persists the three raw inputs of a distribution run (timecards, tip
  transactions, bookings) and the results of every completed run: the run
  summary, its allocation records, its payroll lines and its ledger entries.

INTERFACES IMPLEMENTED:
  generic.Store: Append-only ledger entries, keyed by run

APPEND-ONLY ENFORCEMENT:
  - No UPDATE statements on ledger_entries
  - A run and all of its rows are written in one SQL transaction, so a run
    that failed reconciliation never leaves partial rows behind
  - idempotency_key is UNIQUE; replaying the same run is rejected

KEY TABLES:
  shifts:             Raw timecard rows
  tip_transactions:   Raw point-of-sale rows (transaction_id NOT unique:
                      duplicates are resolved at run time, not on insert)
  bookings:           Raw appointment rows
  distribution_runs:  One row per successful run with its totals
  allocation_records: One JSON document per tip event per run
  payroll_lines:      Per-employee totals per run
  ledger_entries:     Append-only processed/distributed/overpaid lines

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite allows one writer at a time.

WAL MODE:
  Opened with WAL so readers don't block the single writer.

USAGE:
  store, err := sqlite.New("./data/tips.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - generic/store.go: Interface definition
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

// Store implements generic.Store and the run/input persistence on SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ generic.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS shifts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_ref TEXT,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL,
		job_title TEXT,
		clock_in TEXT NOT NULL,
		clock_out TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tip_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		transaction_id TEXT NOT NULL,
		paid_at TEXT NOT NULL,
		tip TEXT NOT NULL,
		customer_id TEXT,
		customer_name TEXT,
		customer_email TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_tip_transactions_paid_at
		ON tip_transactions(paid_at);

	CREATE TABLE IF NOT EXISTS bookings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		customer_email TEXT,
		first_name TEXT,
		last_name TEXT,
		start_at TEXT,
		duration_minutes REAL
	);

	CREATE TABLE IF NOT EXISTS distribution_runs (
		id TEXT PRIMARY KEY,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		currency TEXT NOT NULL,
		processed TEXT NOT NULL,
		distributed TEXT NOT NULL,
		overpaid TEXT NOT NULL,
		tips INTEGER NOT NULL,
		diagnostics_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allocation_records (
		run_id TEXT NOT NULL REFERENCES distribution_runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		transaction_id TEXT NOT NULL,
		reason TEXT NOT NULL,
		record_json TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	);

	CREATE TABLE IF NOT EXISTS payroll_lines (
		run_id TEXT NOT NULL REFERENCES distribution_runs(id) ON DELETE CASCADE,
		employee_id TEXT NOT NULL,
		full_name TEXT NOT NULL,
		job_title TEXT,
		tip_eligible INTEGER NOT NULL,
		total TEXT NOT NULL,
		shares INTEGER NOT NULL,
		PRIMARY KEY (run_id, employee_id)
	);

	CREATE TABLE IF NOT EXISTS ledger_entries (
		id TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		employee_id TEXT,
		kind TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		effective_at TEXT NOT NULL,
		idempotency_key TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_ledger_entries_run
		ON ledger_entries(run_id);
	CREATE INDEX IF NOT EXISTS idx_ledger_entries_employee
		ON ledger_entries(run_id, employee_id) WHERE employee_id IS NOT NULL;
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// RAW INPUTS
// =============================================================================

// SaveShifts appends timecard rows.
func (s *Store) SaveShifts(ctx context.Context, rows []tips.RawShift) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO shifts (employee_ref, first_name, last_name, job_title, clock_in, clock_out)
				VALUES (?, ?, ?, ?, ?, ?)`,
				nullString(r.EmployeeRef), r.FirstName, r.LastName, r.JobTitle,
				formatTime(r.ClockIn), formatTime(r.ClockOut),
			)
			if err != nil {
				return fmt.Errorf("failed to insert shift: %w", err)
			}
		}
		return nil
	})
}

// ListShifts returns every stored timecard row in insertion order.
func (s *Store) ListShifts(ctx context.Context) ([]tips.RawShift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_ref, first_name, last_name, job_title, clock_in, clock_out
		FROM shifts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var out []tips.RawShift
	for rows.Next() {
		var (
			r                 tips.RawShift
			ref, title        sql.NullString
			clockIn, clockOut string
		)
		if err := rows.Scan(&ref, &r.FirstName, &r.LastName, &title, &clockIn, &clockOut); err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		var d decoder
		r.EmployeeRef = ref.String
		r.JobTitle = title.String
		r.ClockIn = d.time("shifts.clock_in", clockIn)
		r.ClockOut = d.time("shifts.clock_out", clockOut)
		if d.err != nil {
			return nil, d.err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveTransactions appends point-of-sale rows. Duplicated transaction IDs are
// stored as given.
func (s *Store) SaveTransactions(ctx context.Context, rows []tips.TipTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tip_transactions (transaction_id, paid_at, tip, customer_id, customer_name, customer_email)
				VALUES (?, ?, ?, ?, ?, ?)`,
				string(r.TransactionID), formatTime(r.Timestamp), r.Tip.String(),
				nullString(r.CustomerID), nullString(r.CustomerName), nullString(r.CustomerEmail),
			)
			if err != nil {
				return fmt.Errorf("failed to insert tip transaction: %w", err)
			}
		}
		return nil
	})
}

// ListTransactions returns every stored point-of-sale row in insertion order.
func (s *Store) ListTransactions(ctx context.Context) ([]tips.TipTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, paid_at, tip, customer_id, customer_name, customer_email
		FROM tip_transactions ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tip transactions: %w", err)
	}
	defer rows.Close()

	var out []tips.TipTransaction
	for rows.Next() {
		var (
			r                   tips.TipTransaction
			id, paidAt, tip     string
			custID, name, email sql.NullString
		)
		if err := rows.Scan(&id, &paidAt, &tip, &custID, &name, &email); err != nil {
			return nil, fmt.Errorf("failed to scan tip transaction: %w", err)
		}
		var d decoder
		r.TransactionID = generic.TransactionID(id)
		r.Timestamp = d.time("tip_transactions.paid_at", paidAt)
		r.Tip = d.decimal("tip_transactions.tip", tip)
		if d.err != nil {
			return nil, fmt.Errorf("transaction %s: %w", id, d.err)
		}
		r.CustomerID = custID.String
		r.CustomerName = name.String
		r.CustomerEmail = email.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveBookings appends appointment rows.
func (s *Store) SaveBookings(ctx context.Context, rows []tips.RawBooking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			var start sql.NullString
			if !r.Start.IsZero() {
				start = nullString(formatTime(r.Start))
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO bookings (customer_email, first_name, last_name, start_at, duration_minutes)
				VALUES (?, ?, ?, ?, ?)`,
				nullString(r.CustomerEmail), nullString(r.FirstName), nullString(r.LastName),
				start, r.DurationMinutes,
			)
			if err != nil {
				return fmt.Errorf("failed to insert booking: %w", err)
			}
		}
		return nil
	})
}

// ListBookings returns every stored appointment row in insertion order.
func (s *Store) ListBookings(ctx context.Context) ([]tips.RawBooking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT customer_email, first_name, last_name, start_at, duration_minutes
		FROM bookings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var out []tips.RawBooking
	for rows.Next() {
		var (
			r                         tips.RawBooking
			email, first, last, start sql.NullString
			minutes                   sql.NullFloat64
		)
		if err := rows.Scan(&email, &first, &last, &start, &minutes); err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		r.CustomerEmail = email.String
		r.FirstName = first.String
		r.LastName = last.String
		if start.Valid {
			var d decoder
			if r.Start = d.time("bookings.start_at", start.String); d.err != nil {
				return nil, d.err
			}
		}
		r.DurationMinutes = minutes.Float64
		out = append(out, r)
	}
	return out, rows.Err()
}

// LoadInput reads all three inputs for a run.
func (s *Store) LoadInput(ctx context.Context) (tips.Input, error) {
	var (
		in  tips.Input
		err error
	)
	if in.Shifts, err = s.ListShifts(ctx); err != nil {
		return in, err
	}
	if in.Transactions, err = s.ListTransactions(ctx); err != nil {
		return in, err
	}
	if in.Bookings, err = s.ListBookings(ctx); err != nil {
		return in, err
	}
	return in, nil
}

// =============================================================================
// DISTRIBUTION RUNS
// =============================================================================

// RunRecord is the stored summary of one distribution run.
type RunRecord struct {
	ID          generic.RunID
	Period      generic.Period
	Currency    generic.Currency
	Processed   generic.Amount
	Distributed generic.Amount
	Overpaid    generic.Amount
	Tips        int
	Diagnostics tips.Diagnostics
	CreatedAt   time.Time
}

// SaveDistribution writes a reconciled run with its records, payroll lines
// and ledger entries in one SQL transaction.
func (s *Store) SaveDistribution(ctx context.Context, d *tips.Distribution) error {
	diagJSON, err := json.Marshal(d.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to encode diagnostics: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		l := d.Ledger
		_, err := tx.ExecContext(ctx, `
			INSERT INTO distribution_runs (id, period_start, period_end, currency,
				processed, distributed, overpaid, tips, diagnostics_json, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(d.ID), formatTime(d.Period.Start), formatTime(d.Period.End), string(d.Currency),
			l.TotalProcessed.Value.String(), l.TotalDistributed.Value.String(), l.TotalOverpaid.Value.String(),
			l.Tips, string(diagJSON), formatTime(d.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert run: %w", err)
		}

		for seq, rec := range d.Records {
			recJSON, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("failed to encode record: %w", err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO allocation_records (run_id, seq, transaction_id, reason, record_json)
				VALUES (?, ?, ?, ?, ?)`,
				string(d.ID), seq, string(rec.Event.TransactionID), string(rec.Reason), string(recJSON),
			); err != nil {
				return fmt.Errorf("failed to insert allocation record: %w", err)
			}
		}

		for _, line := range d.Payroll() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO payroll_lines (run_id, employee_id, full_name, job_title, tip_eligible, total, shares)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				string(d.ID), string(line.EmployeeID), line.FullName, line.JobTitle,
				line.TipEligible, line.Total.Value.String(), line.Shares,
			); err != nil {
				return fmt.Errorf("failed to insert payroll line: %w", err)
			}
		}

		for _, e := range d.Entries() {
			if err := appendEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetRun returns one run summary or generic.ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, id generic.RunID) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, runColumns+` WHERE id = ?`, string(id))
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns run summaries, newest first. limit <= 0 means all.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := runColumns + ` ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// GetAllocations returns the records of a run in tip order.
func (s *Store) GetAllocations(ctx context.Context, id generic.RunID) ([]tips.AllocationRecord, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT record_json FROM allocation_records WHERE run_id = ? ORDER BY seq`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query allocation records: %w", err)
	}
	defer rows.Close()

	var out []tips.AllocationRecord
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("failed to scan allocation record: %w", err)
		}
		var rec tips.AllocationRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode allocation record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetPayroll returns the per-employee lines of a run, highest total first.
func (s *Store) GetPayroll(ctx context.Context, id generic.RunID) ([]tips.PayrollLine, error) {
	run, err := s.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT employee_id, full_name, job_title, tip_eligible, total, shares
		FROM payroll_lines WHERE run_id = ?
		ORDER BY CAST(total AS REAL) DESC, full_name`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query payroll: %w", err)
	}
	defer rows.Close()

	var out []tips.PayrollLine
	for rows.Next() {
		var (
			line  tips.PayrollLine
			empID string
			title sql.NullString
			total string
		)
		if err := rows.Scan(&empID, &line.FullName, &title, &line.TipEligible, &total, &line.Shares); err != nil {
			return nil, fmt.Errorf("failed to scan payroll line: %w", err)
		}
		line.EmployeeID = generic.EmployeeID(empID)
		line.JobTitle = title.String
		var d decoder
		if line.Total = generic.NewAmountFromDecimal(d.decimal("payroll_lines.total", total), run.Currency); d.err != nil {
			return nil, d.err
		}
		out = append(out, line)
	}
	return out, rows.Err()
}

const runColumns = `
	SELECT id, period_start, period_end, currency, processed, distributed, overpaid,
	       tips, diagnostics_json, created_at
	FROM distribution_runs`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		run                              RunRecord
		id, start, end, currency         string
		processed, distributed, overpaid string
		diagJSON                         sql.NullString
		createdAt                        string
	)
	if err := row.Scan(&id, &start, &end, &currency, &processed, &distributed, &overpaid,
		&run.Tips, &diagJSON, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	cur := generic.Currency(currency)
	run.ID = generic.RunID(id)
	run.Currency = cur
	var d decoder
	run.Period = generic.Period{Start: d.time("period_start", start), End: d.time("period_end", end)}
	run.Processed = generic.NewAmountFromDecimal(d.decimal("processed", processed), cur)
	run.Distributed = generic.NewAmountFromDecimal(d.decimal("distributed", distributed), cur)
	run.Overpaid = generic.NewAmountFromDecimal(d.decimal("overpaid", overpaid), cur)
	run.CreatedAt = d.time("created_at", createdAt)
	if d.err != nil {
		return nil, fmt.Errorf("run %s: %w", id, d.err)
	}
	if diagJSON.Valid && diagJSON.String != "" {
		if err := json.Unmarshal([]byte(diagJSON.String), &run.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostics: %w", err)
		}
	}
	return &run, nil
}

// =============================================================================
// LEDGER ENTRIES (generic.Store interface)
// =============================================================================

// AppendBatch adds entries atomically.
func (s *Store) AppendBatch(ctx context.Context, entries []generic.Entry) error {
	keys := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.IdempotencyKey == "" {
			continue
		}
		if keys[e.IdempotencyKey] {
			return generic.ErrDuplicateIdempotencyKey
		}
		keys[e.IdempotencyKey] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, e := range entries {
			if err := appendEntry(ctx, tx, e); err != nil {
				return err
			}
		}
		return nil
	})
}

func appendEntry(ctx context.Context, db execer, e generic.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO ledger_entries (id, run_id, transaction_id, employee_id, kind,
			amount, currency, effective_at, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.RunID), string(e.TransactionID), nullString(string(e.EmployeeID)), string(e.Kind),
		e.Amount.Value.String(), string(e.Amount.Currency), formatTime(e.EffectiveAt),
		nullString(e.IdempotencyKey), formatTime(time.Now().UTC()),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return nil
}

// Load returns all entries of a run in insertion order.
func (s *Store) Load(ctx context.Context, runID generic.RunID) ([]generic.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, transaction_id, employee_id, kind, amount, currency, effective_at, idempotency_key
		FROM ledger_entries WHERE run_id = ? ORDER BY rowid`, string(runID))
	if err != nil {
		return nil, fmt.Errorf("failed to query ledger entries: %w", err)
	}
	defer rows.Close()

	var out []generic.Entry
	for rows.Next() {
		var (
			e                          generic.Entry
			runIDs, txID, kind, amount string
			currency, effectiveAt      string
			empID, key                 sql.NullString
		)
		if err := rows.Scan(&e.ID, &runIDs, &txID, &empID, &kind, &amount, &currency, &effectiveAt, &key); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.RunID = generic.RunID(runIDs)
		e.TransactionID = generic.TransactionID(txID)
		e.EmployeeID = generic.EmployeeID(empID.String)
		e.Kind = generic.EntryKind(kind)
		var d decoder
		e.Amount = generic.NewAmountFromDecimal(d.decimal("ledger_entries.amount", amount), generic.Currency(currency))
		e.EffectiveAt = d.time("ledger_entries.effective_at", effectiveAt)
		if d.err != nil {
			return nil, fmt.Errorf("ledger entry %s: %w", e.ID, d.err)
		}
		e.IdempotencyKey = key.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Exists checks if an idempotency key exists.
func (s *Store) Exists(ctx context.Context, idempotencyKey string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_entries WHERE idempotency_key = ?",
		idempotencyKey,
	).Scan(&count)

	return count > 0, err
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	return s.clear(ctx, "ledger_entries", "payroll_lines", "allocation_records", "distribution_runs",
		"bookings", "tip_transactions", "shifts")
}

// ResetInputs deletes shifts, transactions and bookings but keeps stored runs.
func (s *Store) ResetInputs(ctx context.Context) error {
	return s.clear(ctx, "bookings", "tip_transactions", "shifts")
}

func (s *Store) clear(ctx context.Context, tables ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, table := range tables {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return err
			}
		}
		return nil
	})
}

// inTx runs fn in a SQL transaction. Callers hold s.mu.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// decoder parses stored text columns and keeps the first failure.
type decoder struct {
	err error
}

func (d *decoder) time(column, s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return t
}

func (d *decoder) decimal(column, s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("corrupt %s %q: %w", column, s, err)
	}
	return v
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
