/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built days of timecards, point-of-sale rows and bookings
	that exercise each allocation path. Load one, then POST
	/api/distributions to see the result.

AVAILABLE SCENARIOS:

	single-booking:  Two staff, one booked tip, split by overlap
	walk-ins:        No bookings at all, every tip split evenly
	messy-feed:      Duplicates, refunds, zero tips, a booking with no
	                 duration, a name variant and a tip after closing

HOW SCENARIOS WORK:
 1. Reset database (clear all data, runs included)
 2. Save shifts
 3. Save transactions
 4. Save bookings

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "messy-feed"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create builder function: xxxScenario() tips.Input
 3. Add case to ScenarioInput

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
	All scenarios take place on ScenarioDay, in UTC.

SEE ALSO:
  - handlers.go: ResetDatabase, RunDistribution
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

// ScenarioDay is the date every demo scenario uses.
var ScenarioDay = time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "single-booking",
		Name:        "Single Booking",
		Description: "Two stylists overlap a one-hour booking; a $10 tip splits $5/$5",
	},
	{
		ID:          "walk-ins",
		Name:        "Walk-ins Only",
		Description: "No bookings: each tip is split evenly among whoever is clocked in",
	},
	{
		ID:          "messy-feed",
		Name:        "Messy Feed",
		Description: "Duplicate rows, refunds, zero tips, a defaulted booking and a tip after closing",
	},
}

// Scenarios returns the available demo scenarios.
func Scenarios() []ScenarioDTO {
	return append([]ScenarioDTO(nil), scenarios...)
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, ok := ScenarioInput(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario",
			fmt.Errorf("%w: scenario %q", generic.ErrInvalidInput, req.ScenarioID))
		return
	}

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	if err := h.LoadInput(r.Context(), in); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ScenarioID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// LoadInput replaces the stored inputs with in. Stored runs are kept.
func (h *Handler) LoadInput(ctx context.Context, in tips.Input) error {
	if err := h.Store.ResetInputs(ctx); err != nil {
		return fmt.Errorf("reset inputs: %w", err)
	}
	if err := h.Store.SaveShifts(ctx, in.Shifts); err != nil {
		return fmt.Errorf("shifts: %w", err)
	}
	if err := h.Store.SaveTransactions(ctx, in.Transactions); err != nil {
		return fmt.Errorf("transactions: %w", err)
	}
	if err := h.Store.SaveBookings(ctx, in.Bookings); err != nil {
		return fmt.Errorf("bookings: %w", err)
	}
	return nil
}

// ScenarioInput returns the inputs of a named scenario.
func ScenarioInput(id string) (tips.Input, bool) {
	switch id {
	case "single-booking":
		return singleBookingScenario(), true
	case "walk-ins":
		return walkInsScenario(), true
	case "messy-feed":
		return messyFeedScenario(), true
	}
	return tips.Input{}, false
}

// =============================================================================
// SCENARIO BUILDERS
// =============================================================================

func clock(hh, mm int) time.Time {
	return ScenarioDay.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func workShift(first, last, title string, in, out time.Time) tips.RawShift {
	return tips.RawShift{FirstName: first, LastName: last, JobTitle: title, ClockIn: in, ClockOut: out}
}

func sale(id string, when time.Time, tip string) tips.TipTransaction {
	return tips.TipTransaction{
		TransactionID: generic.TransactionID(id),
		Timestamp:     when,
		Tip:           decimal.RequireFromString(tip),
	}
}

func appointment(first, last string, start time.Time, minutes float64) tips.RawBooking {
	return tips.RawBooking{FirstName: first, LastName: last, Start: start, DurationMinutes: minutes}
}

func singleBookingScenario() tips.Input {
	return tips.Input{
		Shifts: []tips.RawShift{
			workShift("Alex", "Avery", "Stylist", clock(9, 0), clock(17, 0)),
			workShift("Blair", "Brook", "Stylist", clock(12, 0), clock(17, 0)),
		},
		Transactions: []tips.TipTransaction{
			sale("sb-1001", clock(14, 0), "10.00"),
		},
		Bookings: []tips.RawBooking{
			appointment("Morgan", "Lee", clock(13, 0), 60),
		},
	}
}

func walkInsScenario() tips.Input {
	return tips.Input{
		Shifts: []tips.RawShift{
			workShift("Alex", "Avery", "Stylist", clock(9, 0), clock(15, 0)),
			workShift("Blair", "Brook", "Stylist", clock(11, 0), clock(19, 0)),
			workShift("Casey", "Cole", "Colorist", clock(10, 0), clock(18, 0)),
		},
		Transactions: []tips.TipTransaction{
			sale("wi-2001", clock(9, 45), "6.00"),
			sale("wi-2002", clock(12, 30), "9.00"),
			sale("wi-2003", clock(16, 10), "10.00"),
			sale("wi-2004", clock(18, 30), "4.50"),
		},
	}
}

func messyFeedScenario() tips.Input {
	return tips.Input{
		Shifts: []tips.RawShift{
			workShift("Alex", "Avery", "Stylist", clock(9, 0), clock(13, 0)),
			workShift("alex", "avery", "Stylist", clock(14, 0), clock(17, 0)),
			workShift("Blair", "Brook", "Stylist", clock(12, 0), clock(18, 0)),
			workShift("Dana", "Drew", "Assistant", clock(17, 0), clock(16, 0)),
		},
		Transactions: []tips.TipTransaction{
			sale("mf-3001", clock(12, 40), "12.00"),
			sale("mf-3001", clock(12, 40), "12.00"),
			sale("mf-3002", clock(15, 0), "0"),
			sale("mf-3003", clock(15, 30), "-4.00"),
			sale("mf-3004", clock(9, 5), "7.00"),
			sale("mf-3005", clock(21, 15), "5.00"),
		},
		Bookings: []tips.RawBooking{
			appointment("Morgan", "Lee", clock(12, 10), 60),
			appointment("Riley", "Fox", clock(15, 0), 0),
		},
	}
}
