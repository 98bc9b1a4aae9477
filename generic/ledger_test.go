package generic_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/generic/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func usd(s string) generic.Amount {
	return generic.MustAmount(s, generic.USD)
}

func post(l *generic.Ledger, tip string, overpaid string, shares ...generic.Posting) {
	l.Post(usd(tip), shares, usd(overpaid))
}

func pay(id string, amount string) generic.Posting {
	return generic.Posting{EmployeeID: generic.EmployeeID(id), Amount: usd(amount)}
}

// =============================================================================
// RECONCILE
// =============================================================================

func TestLedger_BalancedRunReconciles(t *testing.T) {
	// GIVEN: One split tip, one refund, one overpaid tip
	// WHEN: Reconciling
	// THEN: Distributed + Overpaid == Processed and per-employee totals add up

	l := generic.NewLedger(generic.USD)
	post(l, "10", "0", pay("a", "6"), pay("b", "4"))
	post(l, "-5", "0", pay("a", "-2.5"), pay("b", "-2.5"))
	post(l, "7", "7")

	if err := l.Reconcile(generic.DefaultEpsilon); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	snap := l.Snapshot()
	if !snap.TotalProcessed.Equal(usd("12")) {
		t.Errorf("expected processed 12, got %s", snap.TotalProcessed)
	}
	if !snap.TotalDistributed.Equal(usd("5")) {
		t.Errorf("expected distributed 5, got %s", snap.TotalDistributed)
	}
	if !snap.TotalOverpaid.Equal(usd("7")) {
		t.Errorf("expected overpaid 7, got %s", snap.TotalOverpaid)
	}
	if snap.Tips != 3 {
		t.Errorf("expected 3 tips, got %d", snap.Tips)
	}
	if got := snap.TotalFor("a"); !got.Equal(usd("3.5")) {
		t.Errorf("expected a = 3.5, got %s", got)
	}
	if got := snap.TotalFor("nobody"); !got.IsZero() {
		t.Errorf("expected zero for unknown employee, got %s", got)
	}
	if snap.Employees[0].EmployeeID != "a" || snap.Employees[0].Postings != 2 {
		t.Errorf("expected a first with 2 postings, got %+v", snap.Employees[0])
	}
}

func TestLedger_ImbalanceIsReconciliationError(t *testing.T) {
	// GIVEN: A posting that loses five cents
	// WHEN: Reconciling with a one cent tolerance
	// THEN: ReconciliationError carrying all three totals

	l := generic.NewLedger(generic.USD)
	post(l, "10", "0", pay("a", "9.95"))

	err := l.Reconcile(generic.DefaultEpsilon)
	if err == nil {
		t.Fatal("expected reconciliation error")
	}

	var recErr *generic.ReconciliationError
	if !errors.As(err, &recErr) {
		t.Fatalf("expected *ReconciliationError, got %T", err)
	}
	if !recErr.Difference.Equal(decimal.RequireFromString("0.05")) {
		t.Errorf("expected difference 0.05, got %s", recErr.Difference)
	}
	if !errors.Is(err, generic.ErrReconciliation) || !generic.IsFatal(err) {
		t.Error("reconciliation error must be fatal")
	}
}

func TestLedger_WithinEpsilon(t *testing.T) {
	l := generic.NewLedger(generic.USD)
	post(l, "10", "0", pay("a", "9.995"))

	if err := l.Reconcile(generic.DefaultEpsilon); err != nil {
		t.Errorf("half a cent is within tolerance: %v", err)
	}
	if err := l.Reconcile(decimal.Zero); err == nil {
		t.Error("expected error with zero tolerance")
	}
}

func TestLedger_ConcurrentPosts(t *testing.T) {
	l := generic.NewLedger(generic.USD)

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			post(l, "1", "0", pay("a", "0.5"), pay("b", "0.5"))
		}()
	}
	wg.Wait()

	snap := l.Snapshot()
	if !snap.TotalFor("a").Equal(usd("100")) {
		t.Errorf("expected a = 100, got %s", snap.TotalFor("a"))
	}
	if err := l.Reconcile(decimal.Zero); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// =============================================================================
// REPLAY
// =============================================================================

func TestReplay_RebuildsFromStoredEntries(t *testing.T) {
	// GIVEN: Entries persisted through a store
	// WHEN: Loading and replaying them
	// THEN: The rebuilt ledger has the original totals

	ctx := context.Background()
	s := store.NewMemory()
	at := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)

	entries := []generic.Entry{
		{RunID: "run-1", TransactionID: "tx-1", Kind: generic.EntryProcessed, Amount: usd("10"), EffectiveAt: at, IdempotencyKey: "k1"},
		{RunID: "run-1", TransactionID: "tx-1", EmployeeID: "a", Kind: generic.EntryDistributed, Amount: usd("6"), EffectiveAt: at, IdempotencyKey: "k2"},
		{RunID: "run-1", TransactionID: "tx-1", EmployeeID: "b", Kind: generic.EntryDistributed, Amount: usd("4"), EffectiveAt: at, IdempotencyKey: "k3"},
		{RunID: "run-1", TransactionID: "tx-2", Kind: generic.EntryProcessed, Amount: usd("3"), EffectiveAt: at, IdempotencyKey: "k4"},
		{RunID: "run-1", TransactionID: "tx-2", Kind: generic.EntryOverpaid, Amount: usd("3"), EffectiveAt: at, IdempotencyKey: "k5"},
	}
	if err := s.AppendBatch(ctx, entries); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	loaded, err := s.Load(ctx, "run-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l := generic.Replay(generic.USD, loaded)
	if err := l.Reconcile(decimal.Zero); err != nil {
		t.Fatalf("replayed ledger must balance: %v", err)
	}
	snap := l.Snapshot()
	if snap.Tips != 2 {
		t.Errorf("expected 2 tips, got %d", snap.Tips)
	}
	if !snap.TotalFor("a").Equal(usd("6")) || !snap.TotalFor("b").Equal(usd("4")) {
		t.Errorf("unexpected employee totals: %+v", snap.Employees)
	}
	if !snap.TotalOverpaid.Equal(usd("3")) {
		t.Errorf("expected overpaid 3, got %s", snap.TotalOverpaid)
	}
}
