/*
roster.go - Shift store and employee registry

PURPOSE:
  Normalizes raw timecard rows into typed shifts and builds the employee
  registry once, up front. Everything downstream refers to employees by
  generic.EmployeeID, never by display name.

EMPLOYEE IDS:
  - If the timecard row carries an EmployeeRef, that is the ID.
  - Otherwise the ID is a slug of the normalized full name. Names with
    punctuation get a suffix derived from the exact lowercased name, so
    "Ann-Marie Smith" and "Ann Marie Smith" stay two employees and a name
    with no letters or digits still gets a distinct ID.
  Two rows that resolve to the same ID are the same employee; the first
  display name seen is kept and the variant is counted as an alias.

ELIGIBILITY:
  Config.ExemptEmployees names the employees who never receive tips. Every
  other employee is eligible.

INTERVAL INDEX:
  Shifts are kept sorted by ClockIn. Queries binary-search the first shift
  that starts after the window and scan only the prefix before it, so a query
  touches shifts that could overlap instead of the whole roster.

SEE ALSO:
  - allocator.go: Uses WorkingDuring and WorkingAt
  - period.go: Uses Extent
*/
package tips

import (
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/warp/tip-engine/generic"
)

// RosterStats counts what happened to the raw rows.
type RosterStats struct {
	Rows    int
	Shifts  int
	Invalid int // missing name, or clock-out not after clock-in
	Aliases int // same ID seen under a different display name
}

type Roster struct {
	shifts    []Shift // sorted by ClockIn
	employees map[generic.EmployeeID]Employee
	order     []generic.EmployeeID
	stats     RosterStats
}

// NewRoster builds the shift store. Invalid rows are dropped and counted.
func NewRoster(raw []RawShift, cfg Config) *Roster {
	r := &Roster{
		employees: make(map[generic.EmployeeID]Employee),
		stats:     RosterStats{Rows: len(raw)},
	}

	for _, row := range raw {
		name := row.FullName()
		if name == "" || row.ClockIn.IsZero() || row.ClockOut.IsZero() || !row.ClockIn.Before(row.ClockOut) {
			r.stats.Invalid++
			continue
		}

		emp := r.register(row, name, cfg)
		r.shifts = append(r.shifts, Shift{
			EmployeeID:  emp.ID,
			FullName:    emp.FullName,
			JobTitle:    strings.TrimSpace(row.JobTitle),
			ClockIn:     row.ClockIn,
			ClockOut:    row.ClockOut,
			TipEligible: emp.TipEligible,
		})
	}

	sort.SliceStable(r.shifts, func(i, j int) bool {
		return r.shifts[i].ClockIn.Before(r.shifts[j].ClockIn)
	})
	r.stats.Shifts = len(r.shifts)
	return r
}

func (r *Roster) register(row RawShift, name string, cfg Config) Employee {
	id := EmployeeIDFor(row.EmployeeRef, name)
	if emp, ok := r.employees[id]; ok {
		if !strings.EqualFold(emp.FullName, name) {
			r.stats.Aliases++
		}
		return emp
	}
	emp := Employee{
		ID:          id,
		FullName:    name,
		JobTitle:    strings.TrimSpace(row.JobTitle),
		TipEligible: !cfg.IsExempt(name),
	}
	r.employees[id] = emp
	r.order = append(r.order, id)
	return emp
}

// employeeNamespace seeds the name-derived suffix of punctuated names.
var employeeNamespace = uuid.MustParse("8f3c2a4e-5b1d-4c7a-9e60-2d4b7f1a0c93")

// EmployeeIDFor derives the registry key for a timecard row.
func EmployeeIDFor(ref, fullName string) generic.EmployeeID {
	if ref = strings.TrimSpace(ref); ref != "" {
		return generic.EmployeeID(ref)
	}
	name := strings.ToLower(normalizeSpaces(fullName))

	var b strings.Builder
	dash, lossy := false, false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
			continue
		case r != ' ':
			lossy = true
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if !lossy {
		return generic.EmployeeID(slug)
	}

	suffix := uuid.NewSHA1(employeeNamespace, []byte(name)).String()[:8]
	if slug == "" {
		return generic.EmployeeID("emp-" + suffix)
	}
	return generic.EmployeeID(slug + "-" + suffix)
}

// =============================================================================
// QUERIES
// =============================================================================

func (r *Roster) Len() int          { return len(r.shifts) }
func (r *Roster) Stats() RosterStats { return r.stats }

// Shifts returns a copy of all shifts ordered by clock-in.
func (r *Roster) Shifts() []Shift {
	out := make([]Shift, len(r.shifts))
	copy(out, r.shifts)
	return out
}

// Employees returns the registry in first-seen order.
func (r *Roster) Employees() []Employee {
	out := make([]Employee, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.employees[id])
	}
	return out
}

func (r *Roster) Employee(id generic.EmployeeID) (Employee, bool) {
	emp, ok := r.employees[id]
	return emp, ok
}

// Extent returns the earliest clock-in and latest clock-out.
func (r *Roster) Extent() (earliest, latest time.Time, ok bool) {
	if len(r.shifts) == 0 {
		return time.Time{}, time.Time{}, false
	}
	earliest = r.shifts[0].ClockIn
	latest = r.shifts[0].ClockOut
	for _, s := range r.shifts[1:] {
		if s.ClockOut.After(latest) {
			latest = s.ClockOut
		}
	}
	return earliest, latest, true
}

// candidates returns the shifts that clocked in no later than t.
func (r *Roster) candidates(t time.Time) []Shift {
	n := sort.Search(len(r.shifts), func(i int) bool {
		return r.shifts[i].ClockIn.After(t)
	})
	return r.shifts[:n]
}

// WorkingAt returns the shifts whose [ClockIn, ClockOut] contains t.
func (r *Roster) WorkingAt(t time.Time) []Shift {
	var out []Shift
	for _, s := range r.candidates(t) {
		if s.Interval().Contains(t) {
			out = append(out, s)
		}
	}
	return out
}

// ShiftOverlap pairs a shift with how long it overlapped a window.
type ShiftOverlap struct {
	Shift   Shift
	Overlap time.Duration
}

// WorkingDuring returns shifts with a strictly positive overlap with window.
func (r *Roster) WorkingDuring(window generic.Interval) []ShiftOverlap {
	var out []ShiftOverlap
	for _, s := range r.candidates(window.End) {
		if d := s.Interval().Overlap(window); d > 0 {
			out = append(out, ShiftOverlap{Shift: s, Overlap: d})
		}
	}
	return out
}
