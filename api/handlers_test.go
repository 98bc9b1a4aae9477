/*
handlers_test.go - HTTP tests for the API handlers

Tests for:
- Input endpoints (shifts, transactions, bookings)
- Running, listing and reading distributions
- Error status mapping
- Scenarios and metrics
*/
package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

func newTestHandler(t *testing.T) (*Handler, *chi.Mux) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := tips.DefaultConfig()
	cfg.Workers = 2
	h := NewHandler(store, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return h, NewRouter(h, nil)
}

func do(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func loadScenario(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: id})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// =============================================================================
// INPUTS
// =============================================================================

func TestInputs_PostAndList(t *testing.T) {
	_, router := newTestHandler(t)

	// GIVEN: Rows posted as JSON, tips as number and as string
	rec := do(t, router, http.MethodPost, "/api/shifts", `[
		{"first_name":"Alex","last_name":"Avery","clock_in":"2025-03-10T09:00:00Z","clock_out":"2025-03-10T17:00:00Z"},
		{"first_name":"Blair","last_name":"Brook","clock_in":"2025-03-10T12:00:00Z","clock_out":"2025-03-10T17:00:00Z"}
	]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 2, decode[InsertedResponse](t, rec).Inserted)

	rec = do(t, router, http.MethodPost, "/api/transactions", `[
		{"transaction_id":"tx-1","timestamp":"2025-03-10T14:00:00Z","tip":10},
		{"transaction_id":"tx-2","timestamp":"2025-03-10T15:00:00Z","tip":"2.50"}
	]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodPost, "/api/bookings", `[
		{"first_name":"Morgan","start":"2025-03-10T13:00:00Z","duration_minutes":60},
		{"first_name":"Riley","duration_minutes":30}
	]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Listing them back
	shifts := decode[[]ShiftDTO](t, do(t, router, http.MethodGet, "/api/shifts", nil))
	txs := decode[[]TransactionDTO](t, do(t, router, http.MethodGet, "/api/transactions", nil))
	bookings := decode[[]BookingDTO](t, do(t, router, http.MethodGet, "/api/bookings", nil))

	// THEN: Everything round-trips, a missing booking start stays missing
	require.Len(t, shifts, 2)
	assert.Equal(t, "Alex", shifts[0].FirstName)
	require.Len(t, txs, 2)
	assert.Equal(t, "2.5", txs[1].Tip.String())
	require.Len(t, bookings, 2)
	assert.NotNil(t, bookings[0].Start)
	assert.Nil(t, bookings[1].Start)
}

func TestInputs_RejectsBadRows(t *testing.T) {
	_, router := newTestHandler(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"malformed shifts", "/api/shifts", `{"first_name":`},
		{"transaction without id", "/api/transactions", `[{"timestamp":"2025-03-10T14:00:00Z","tip":1}]`},
		{"transaction without timestamp", "/api/transactions", `[{"transaction_id":"tx-1","tip":1}]`},
		{"non-numeric tip", "/api/transactions", `[{"transaction_id":"tx-1","timestamp":"2025-03-10T14:00:00Z","tip":"lots"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode[ErrorResponse](t, rec).Error)
		})
	}

	txs := decode[[]TransactionDTO](t, do(t, router, http.MethodGet, "/api/transactions", nil))
	assert.Empty(t, txs)
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

func TestDistribution_RunAndReadBack(t *testing.T) {
	_, router := newTestHandler(t)
	loadScenario(t, router, "single-booking")

	// WHEN: Running a distribution
	rec := do(t, router, http.MethodPost, "/api/distributions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[DistributionResponse](t, rec)

	// THEN: $10 splits $5/$5 and balances
	assert.Equal(t, "10.00", run.Processed)
	assert.Equal(t, "10.00", run.Distributed)
	assert.Equal(t, "0.00", run.Overpaid)
	require.Len(t, run.Payroll, 2)
	for _, line := range run.Payroll {
		assert.Equal(t, "5.00", line.Total, line.FullName)
	}

	// AND: The stored run reads back the same
	list := decode[[]RunDTO](t, do(t, router, http.MethodGet, "/api/distributions", nil))
	require.Len(t, list, 1)
	assert.Equal(t, run.ID, list[0].ID)

	got := decode[DistributionResponse](t, do(t, router, http.MethodGet, "/api/distributions/"+run.ID, nil))
	assert.Equal(t, run.Processed, got.Processed)
	assert.Len(t, got.Payroll, 2)

	allocs := decode[[]AllocationDTO](t, do(t, router, http.MethodGet, "/api/distributions/"+run.ID+"/allocations", nil))
	require.Len(t, allocs, 1)
	assert.Equal(t, string(tips.ReasonAllocated), allocs[0].Reason)
	require.NotNil(t, allocs[0].Booking)
	require.Len(t, allocs[0].Shares, 2)
	assert.Equal(t, "5.00", allocs[0].Shares[0].Amount)

	employees := decode[[]PayrollLineDTO](t, do(t, router, http.MethodGet, "/api/distributions/"+run.ID+"/employees", nil))
	assert.Len(t, employees, 2)
}

func TestDistribution_DryRunIsNotStored(t *testing.T) {
	_, router := newTestHandler(t)
	loadScenario(t, router, "walk-ins")

	rec := do(t, router, http.MethodPost, "/api/distributions?dry_run=true", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	run := decode[DistributionResponse](t, rec)
	assert.Equal(t, "29.50", run.Processed)
	assert.Equal(t, 4, run.Diagnostics.FallbackEvenSplit)

	list := decode[[]RunDTO](t, do(t, router, http.MethodGet, "/api/distributions", nil))
	assert.Empty(t, list)
}

func TestDistribution_MessyFeedDiagnostics(t *testing.T) {
	_, router := newTestHandler(t)
	loadScenario(t, router, "messy-feed")

	rec := do(t, router, http.MethodPost, "/api/distributions", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	run := decode[DistributionResponse](t, rec)

	d := run.Diagnostics
	assert.Equal(t, 1, d.InvalidShifts)
	assert.Equal(t, 1, d.Duplicates)
	assert.Equal(t, 1, d.ZeroTips)
	assert.Equal(t, 1, d.Refunds)
	assert.Equal(t, 1, d.DefaultedDurations)
	assert.Equal(t, 1, d.NoWorkerFound)
	assert.Equal(t, "5.00", d.OverpaidByReason[string(tips.ReasonNoWorkerFound)])

	// 12 split 6/6, -4 split -2/-2, 7 to Alex alone, 5 overpaid
	assert.Equal(t, "20.00", run.Processed)
	assert.Equal(t, "15.00", run.Distributed)
	assert.Equal(t, "5.00", run.Overpaid)
	require.Len(t, run.Payroll, 2)
	assert.Equal(t, "Alex Avery", run.Payroll[0].FullName)
	assert.Equal(t, "11.00", run.Payroll[0].Total)
	assert.Equal(t, "4.00", run.Payroll[1].Total)
}

func TestDistribution_ErrorStatuses(t *testing.T) {
	_, router := newTestHandler(t)

	// Nothing stored: no shifts to resolve a pay period from
	rec := do(t, router, http.MethodPost, "/api/distributions", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = do(t, router, http.MethodGet, "/api/distributions/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/distributions/missing/allocations", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/distributions?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDistribution_InvalidSettings(t *testing.T) {
	h, router := newTestHandler(t)
	h.Config.Matcher = "psychic"
	loadScenario(t, router, "single-booking")

	rec := do(t, router, http.MethodPost, "/api/distributions", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

// =============================================================================
// SCENARIOS, RESET, METRICS
// =============================================================================

func TestScenarios_ListLoadAndCurrent(t *testing.T) {
	_, router := newTestHandler(t)

	list := decode[[]ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 3)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	loadScenario(t, router, "walk-ins")
	current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "walk-ins", current.ID)

	// Loading another scenario replaces the inputs
	loadScenario(t, router, "single-booking")
	shifts := decode[[]ShiftDTO](t, do(t, router, http.MethodGet, "/api/shifts", nil))
	assert.Len(t, shifts, 2)
}

func TestReset_ClearsEverything(t *testing.T) {
	_, router := newTestHandler(t)
	loadScenario(t, router, "single-booking")
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/distributions", nil).Code)

	rec := do(t, router, http.MethodPost, "/api/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, decode[[]ShiftDTO](t, do(t, router, http.MethodGet, "/api/shifts", nil)))
	assert.Empty(t, decode[[]RunDTO](t, do(t, router, http.MethodGet, "/api/distributions", nil)))
	assert.Equal(t, "null\n", do(t, router, http.MethodGet, "/api/scenarios/current", nil).Body.String())
}

func TestMetrics_CountRunsByOutcome(t *testing.T) {
	_, router := newTestHandler(t)

	do(t, router, http.MethodPost, "/api/distributions", nil)
	loadScenario(t, router, "messy-feed")
	do(t, router, http.MethodPost, "/api/distributions", nil)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `tipengine_runs_total{outcome="success"} 1`)
	assert.Contains(t, body, `tipengine_runs_total{outcome="configuration_error"} 1`)
	assert.Contains(t, body, "tipengine_duplicate_transactions_total 1")
	assert.Contains(t, body, `tipengine_overpaid_amount_total{reason="NO_WORKER_FOUND"} 5`)
}
