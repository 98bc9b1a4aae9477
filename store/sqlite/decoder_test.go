package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tip-engine/tips"
)

func TestDecoder_KeepsFirstFailure(t *testing.T) {
	var d decoder
	d.decimal("tip", "1.50")
	assert.NoError(t, d.err)

	d.decimal("tip", "oops")
	d.time("paid_at", "yesterday")
	require.Error(t, d.err)
	assert.Contains(t, d.err.Error(), `corrupt tip "oops"`)
}

func TestStore_CorruptStoredValuesAreErrors(t *testing.T) {
	// GIVEN: stored rows whose text columns no longer parse
	// WHEN: they are listed
	// THEN: the read fails instead of defaulting to zero

	ctx := context.Background()
	store, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	paid := time.Date(2025, time.March, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveTransactions(ctx, []tips.TipTransaction{
		{TransactionID: "tx-1", Timestamp: paid, Tip: decimal.RequireFromString("10")},
	}))
	require.NoError(t, store.SaveShifts(ctx, []tips.RawShift{
		{FirstName: "Alex", LastName: "Avery", ClockIn: paid.Add(-time.Hour), ClockOut: paid},
	}))

	_, err = store.db.ExecContext(ctx, `UPDATE tip_transactions SET tip = 'ten dollars'`)
	require.NoError(t, err)
	_, err = store.ListTransactions(ctx)
	assert.ErrorContains(t, err, "tip_transactions.tip")

	_, err = store.LoadInput(ctx)
	assert.Error(t, err)

	_, err = store.db.ExecContext(ctx, `UPDATE shifts SET clock_out = 'later'`)
	require.NoError(t, err)
	_, err = store.ListShifts(ctx)
	assert.ErrorContains(t, err, "shifts.clock_out")
}
