/*
handlers.go - HTTP API handlers for the tip distribution engine

PURPOSE:
  Exposes the engine via REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the tips package.

ENDPOINTS:
  Inputs:
    GET    /api/shifts                        List timecard rows
    POST   /api/shifts                        Append timecard rows
    GET    /api/transactions                  List point-of-sale rows
    POST   /api/transactions                  Append point-of-sale rows
    GET    /api/bookings                      List appointment rows
    POST   /api/bookings                      Append appointment rows

  Distributions:
    POST   /api/distributions                 Run over the stored inputs
                                              (?dry_run=true skips persisting)
    GET    /api/distributions                 List runs, newest first
    GET    /api/distributions/{id}            Run summary with payroll
    GET    /api/distributions/{id}/allocations  Per-tip audit records
    GET    /api/distributions/{id}/employees    Per-employee totals

  Scenarios:
    GET    /api/scenarios                     List demo scenarios
    POST   /api/scenarios/load                Load a demo scenario

  Admin:
    POST   /api/reset                         Delete everything

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Database access
  - Config: Distribution rules every run uses
  - Logger, Metrics: Observability

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed body, invalid input
  - 404: Run not found
  - 409: Run already stored
  - 422: Nothing to distribute (no usable shifts)
  - 500: Reconciliation failure or internal error. A run that does not
         reconcile is never stored and its numbers are never returned.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/store/sqlite"
	"github.com/warp/tip-engine/tips"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	Store   *sqlite.Store
	Config  tips.Config
	Logger  *slog.Logger
	Metrics *Metrics

	runMu sync.Mutex // one run at a time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler. logger may be nil.
func NewHandler(store *sqlite.Store, cfg tips.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Store:   store,
		Config:  cfg,
		Logger:  logger,
		Metrics: NewMetrics(),
	}
}

// Distribute runs the engine over everything stored. When persist is true
// a reconciled run is written to the store; a failed run never is.
func (h *Handler) Distribute(ctx context.Context, persist bool) (*tips.Distribution, error) {
	in, err := h.Store.LoadInput(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading inputs: %w", err)
	}
	return h.DistributeInput(ctx, in, persist)
}

// DistributeInput runs the engine over in.
func (h *Handler) DistributeInput(ctx context.Context, in tips.Input, persist bool) (*tips.Distribution, error) {
	h.runMu.Lock()
	defer h.runMu.Unlock()

	engine, err := tips.NewEngine(h.Config, h.Logger)
	if err != nil {
		h.Metrics.ObserveFailure(err)
		return nil, err
	}

	started := time.Now()
	dist, err := engine.Run(ctx, in)
	if err != nil {
		h.Metrics.ObserveFailure(err)
		return nil, err
	}
	h.Metrics.ObserveRun(dist, time.Since(started))

	if persist {
		if err := h.Store.SaveDistribution(ctx, dist); err != nil {
			return nil, fmt.Errorf("saving run %s: %w", dist.ID, err)
		}
		h.Logger.Info("distribution stored", "run_id", dist.ID, "records", len(dist.Records))
	}
	return dist, nil
}

// =============================================================================
// INPUT ENDPOINTS
// =============================================================================

// CreateShifts appends timecard rows.
func (h *Handler) CreateShifts(w http.ResponseWriter, r *http.Request) {
	var req []ShiftDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]tips.RawShift, 0, len(req))
	for _, d := range req {
		rows = append(rows, d.raw())
	}
	if err := h.Store.SaveShifts(r.Context(), rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shifts", err)
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{Inserted: len(rows)})
}

// ListShifts returns all stored timecard rows.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListShifts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list shifts", err)
		return
	}
	out := make([]ShiftDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toShiftDTO(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTransactions appends point-of-sale rows. Repeated transaction IDs
// are accepted; the run keeps the first.
func (h *Handler) CreateTransactions(w http.ResponseWriter, r *http.Request) {
	var req []TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]tips.TipTransaction, 0, len(req))
	for i, d := range req {
		if d.TransactionID == "" {
			writeError(w, http.StatusBadRequest, "Invalid transaction",
				fmt.Errorf("%w: row %d has no transaction_id", generic.ErrInvalidInput, i))
			return
		}
		if d.Timestamp.IsZero() {
			writeError(w, http.StatusBadRequest, "Invalid transaction",
				fmt.Errorf("%w: row %d has no timestamp", generic.ErrInvalidInput, i))
			return
		}
		rows = append(rows, d.raw())
	}
	if err := h.Store.SaveTransactions(r.Context(), rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save transactions", err)
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{Inserted: len(rows)})
}

// ListTransactions returns all stored point-of-sale rows.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListTransactions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transactions", err)
		return
	}
	out := make([]TransactionDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toTransactionDTO(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateBookings appends appointment rows.
func (h *Handler) CreateBookings(w http.ResponseWriter, r *http.Request) {
	var req []BookingDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rows := make([]tips.RawBooking, 0, len(req))
	for _, d := range req {
		rows = append(rows, d.raw())
	}
	if err := h.Store.SaveBookings(r.Context(), rows); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save bookings", err)
		return
	}
	writeJSON(w, http.StatusCreated, InsertedResponse{Inserted: len(rows)})
}

// ListBookings returns all stored appointment rows.
func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Store.ListBookings(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list bookings", err)
		return
	}
	out := make([]BookingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBookingDTO(row))
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// DISTRIBUTION ENDPOINTS
// =============================================================================

// RunDistribution runs the engine over the stored inputs.
func (h *Handler) RunDistribution(w http.ResponseWriter, r *http.Request) {
	dryRun, _ := strconv.ParseBool(r.URL.Query().Get("dry_run"))

	dist, err := h.Distribute(r.Context(), !dryRun)
	if err != nil {
		h.writeRunError(w, err)
		return
	}

	status := http.StatusCreated
	if dryRun {
		status = http.StatusOK
	}
	writeJSON(w, status, DistributionSummary(dist))
}

func (h *Handler) writeRunError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, generic.ErrReconciliation):
		h.Logger.Error("distribution aborted", "error", err)
		writeError(w, http.StatusInternalServerError, "Distribution aborted: ledger does not balance", err)
	case errors.Is(err, generic.ErrConfiguration):
		writeError(w, http.StatusUnprocessableEntity, "Nothing to distribute", err)
	case errors.Is(err, generic.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "Invalid distribution settings", err)
	case errors.Is(err, generic.ErrDuplicateIdempotencyKey):
		writeError(w, http.StatusConflict, "Run already stored", err)
	default:
		writeError(w, http.StatusInternalServerError, "Distribution failed", err)
	}
}

// ListDistributions returns stored runs, newest first. ?limit=N caps the list.
func (h *Handler) ListDistributions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list distributions", err)
		return
	}
	out := make([]RunDTO, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunDTO(run))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetDistribution returns one run with its payroll.
func (h *Handler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	id := generic.RunID(chi.URLParam(r, "id"))

	run, err := h.Store.GetRun(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	payroll, err := h.Store.GetPayroll(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StoredSummary(*run, payroll))
}

// GetAllocations returns the per-tip audit trail of a run.
func (h *Handler) GetAllocations(w http.ResponseWriter, r *http.Request) {
	id := generic.RunID(chi.URLParam(r, "id"))

	records, err := h.Store.GetAllocations(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AllocationSummaries(records))
}

// GetEmployees returns per-employee totals of a run.
func (h *Handler) GetEmployees(w http.ResponseWriter, r *http.Request) {
	id := generic.RunID(chi.URLParam(r, "id"))

	payroll, err := h.Store.GetPayroll(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPayrollDTOs(payroll))
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeLookupError(w http.ResponseWriter, err error) {
	if generic.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "Distribution not found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "Failed to load distribution", err)
}
