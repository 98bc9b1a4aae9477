package tips_test

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// ROSTER
// =============================================================================

func TestEmployeeIDFor(t *testing.T) {
	assert.Equal(t, generic.EmployeeID("emp-42"), tips.EmployeeIDFor(" emp-42 ", "Alex Avery"))
	assert.Equal(t, generic.EmployeeID("alex-avery"), tips.EmployeeIDFor("", "  Alex   Avery "))

	oneil := tips.EmployeeIDFor("", "O'Neil, Jo")
	assert.True(t, strings.HasPrefix(string(oneil), "o-neil-jo-"), "got %s", oneil)
	assert.Equal(t, oneil, tips.EmployeeIDFor("", "o'neil,  JO"), "case and spacing do not matter")
}

func TestEmployeeIDFor_PunctuationDoesNotCollide(t *testing.T) {
	hyphen := tips.EmployeeIDFor("", "Ann-Marie Smith")
	spaced := tips.EmployeeIDFor("", "Ann Marie Smith")
	assert.NotEqual(t, hyphen, spaced)
	assert.Equal(t, generic.EmployeeID("ann-marie-smith"), spaced)

	bangs := tips.EmployeeIDFor("", "!!")
	marks := tips.EmployeeIDFor("", "??")
	assert.NotEmpty(t, bangs)
	assert.NotEmpty(t, marks)
	assert.NotEqual(t, bangs, marks)
}

func TestRoster_PunctuatedNamesStaySeparate(t *testing.T) {
	// GIVEN: rows whose names differ only in punctuation
	// THEN: each is its own employee and none is counted as an alias

	roster := tips.NewRoster([]tips.RawShift{
		shift("!!", "", at(9, 0), at(12, 0)),
		shift("??", "", at(9, 0), at(12, 0)),
		shift("Ann-Marie", "Smith", at(9, 0), at(12, 0)),
		shift("Ann Marie", "Smith", at(9, 0), at(12, 0)),
	}, testConfig())

	assert.Len(t, roster.Employees(), 4)
	assert.Equal(t, 0, roster.Stats().Aliases)
}

func TestRoster_RegistryAndValidation(t *testing.T) {
	roster := tips.NewRoster([]tips.RawShift{
		shift("Alex", "Avery", at(9, 0), at(12, 0)),
		shift("alex", "avery", at(13, 0), at(17, 0)), // same employee, case variant
		shift("Blair", "Brook", at(12, 0), at(12, 0)), // empty shift
		shift("", "", at(9, 0), at(10, 0)),            // no name
		shift("pat", "OWNER", at(8, 0), at(18, 0)),
	}, testConfig())

	stats := roster.Stats()
	assert.Equal(t, 5, stats.Rows)
	assert.Equal(t, 3, stats.Shifts)
	assert.Equal(t, 2, stats.Invalid)
	assert.Equal(t, 0, stats.Aliases, "case-only variants are not aliases")

	employees := roster.Employees()
	require.Len(t, employees, 2)
	assert.Equal(t, "Alex Avery", employees[0].FullName)
	assert.True(t, employees[0].TipEligible)
	assert.False(t, employees[1].TipEligible, "exemption ignores case")

	shifts := roster.Shifts()
	assert.True(t, shifts[0].ClockIn.Equal(at(8, 0)), "shifts sorted by clock-in")
}

func TestRoster_ExplicitRefJoinsVariants(t *testing.T) {
	a := shift("Alex", "Avery", at(9, 0), at(12, 0))
	a.EmployeeRef = "E1"
	b := shift("Alexandra", "Avery", at(13, 0), at(17, 0))
	b.EmployeeRef = "E1"

	roster := tips.NewRoster([]tips.RawShift{a, b}, testConfig())

	assert.Len(t, roster.Employees(), 1)
	assert.Equal(t, 1, roster.Stats().Aliases)
	emp, ok := roster.Employee("E1")
	require.True(t, ok)
	assert.Equal(t, "Alex Avery", emp.FullName)
}

func TestRoster_WorkingAtIsInclusive(t *testing.T) {
	roster := tips.NewRoster([]tips.RawShift{
		shift("Alex", "Avery", at(9, 0), at(12, 0)),
		shift("Blair", "Brook", at(12, 0), at(15, 0)),
		shift("Casey", "Cole", at(12, 1), at(15, 0)),
	}, testConfig())

	working := roster.WorkingAt(at(12, 0))
	require.Len(t, working, 2)
	assert.Equal(t, "Alex Avery", working[0].FullName)
	assert.Equal(t, "Blair Brook", working[1].FullName)
}

func TestRoster_WorkingDuringSkipsTouchingShifts(t *testing.T) {
	roster := tips.NewRoster([]tips.RawShift{
		shift("Alex", "Avery", at(9, 0), at(13, 0)),
		shift("Blair", "Brook", at(12, 30), at(15, 0)),
		shift("Casey", "Cole", at(14, 0), at(18, 0)),
	}, testConfig())

	got := roster.WorkingDuring(generic.NewInterval(at(13, 0), at(14, 0)))

	require.Len(t, got, 1)
	assert.Equal(t, "Blair Brook", got[0].Shift.FullName)
	assert.Equal(t, time.Hour, got[0].Overlap)
}

// =============================================================================
// PAY PERIOD
// =============================================================================

func TestResolvePayPeriod_SpansWholeDays(t *testing.T) {
	roster := tips.NewRoster([]tips.RawShift{
		shift("Alex", "Avery", at(9, 0), at(17, 0)),
		shift("Blair", "Brook", at(9, 0).Add(48*time.Hour), at(22, 0).Add(48*time.Hour)),
	}, testConfig())

	p, err := tips.ResolvePayPeriod(roster, time.UTC)

	require.NoError(t, err)
	assert.True(t, p.Start.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.End.Equal(time.Date(2025, time.March, 12, 23, 59, 59, 999999999, time.UTC)))
	assert.Equal(t, 3, p.Days())
}

func TestResolvePayPeriod_NoShifts(t *testing.T) {
	roster := tips.NewRoster(nil, testConfig())

	_, err := tips.ResolvePayPeriod(roster, time.UTC)

	require.Error(t, err)
	var cfgErr *generic.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.ErrorIs(t, err, generic.ErrNoShifts)
	assert.True(t, generic.IsFatal(err))
}

// =============================================================================
// TIP COLLECTION
// =============================================================================

func TestCollectTipEvents_DuplicatesCountedOnce(t *testing.T) {
	events, stats := tips.CollectTipEvents([]tips.TipTransaction{
		tipTx("tx-1", at(10, 0), "5"),
		tipTx("tx-1", at(10, 0), "5"),
		tipTx("tx-1", at(10, 5), "7"),
		tipTx("tx-2", at(11, 0), "3"),
	}, period(), generic.USD, quietLogger())

	require.Len(t, events, 2)
	assert.Equal(t, 2, stats.Duplicates)
	assert.True(t, events[0].Tip.Equal(usd("5")), "first occurrence wins")
}

func TestCollectTipEvents_FiltersBeforeDedup(t *testing.T) {
	// GIVEN: an out-of-period row and a zero row share the ID of a valid row
	// THEN: they are filtered, not counted as the first occurrence
	outside := at(10, 0).Add(-48 * time.Hour)
	events, stats := tips.CollectTipEvents([]tips.TipTransaction{
		tipTx("tx-1", outside, "5"),
		tipTx("tx-1", at(9, 0), "0"),
		tipTx("tx-1", at(10, 0), "4"),
	}, period(), generic.USD, quietLogger())

	require.Len(t, events, 1)
	assert.True(t, events[0].Tip.Equal(usd("4")))
	assert.Equal(t, 1, stats.OutOfPeriod)
	assert.Equal(t, 1, stats.ZeroTip)
	assert.Equal(t, 0, stats.Duplicates)
}

func TestCollectTipEvents_RefundsKept(t *testing.T) {
	events, stats := tips.CollectTipEvents([]tips.TipTransaction{
		tipTx("tx-1", at(10, 0), "-5"),
		tipTx("tx-2", at(11, 0), "-2.25"),
	}, period(), generic.USD, quietLogger())

	assert.Len(t, events, 2)
	assert.Equal(t, 2, stats.Refunds)
	assert.True(t, stats.RefundTotal.Equal(usd("-7.25")))
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestBookingIndex_DefaultsMissingDuration(t *testing.T) {
	idx := tips.NewBookingIndex([]tips.RawBooking{
		booking(at(13, 0), 0),
		booking(at(15, 0), -10),
		booking(at(16, 0), 45),
		{DurationMinutes: 30}, // no start
		booking(at(13, 0).Add(72*time.Hour), 30),
	}, period(), testConfig())

	list := idx.Bookings()
	require.Len(t, list, 3)
	assert.True(t, list[0].End.Equal(at(14, 0)), "zero duration becomes 60 minutes")
	assert.True(t, list[0].DurationDefaulted)
	assert.True(t, list[1].End.Equal(at(16, 0)))
	assert.True(t, list[2].End.Equal(at(16, 45)))
	assert.False(t, list[2].DurationDefaulted)

	stats := idx.Stats()
	assert.Equal(t, 2, stats.DefaultedDuration)
	assert.Equal(t, 1, stats.MissingStart)
	assert.Equal(t, 1, stats.OutOfPeriod)
}

func TestBookingIndex_DefaultedBookingContainsLaterPayment(t *testing.T) {
	// GIVEN: a zero-duration booking at 13:00 and a payment at 13:45
	// THEN: with the 60 minute default the payment is contained, the window
	//       starts at 13:00
	roster := tips.NewRoster([]tips.RawShift{
		shift("Alex", "Avery", at(9, 0), at(17, 0)),
	}, testConfig())
	idx := index(booking(at(13, 0), 0))
	m := tips.ProximityMatcher{Threshold: 3 * time.Hour}

	ev := event("tx", at(13, 45), "5")
	b := m.Match(ev, idx)
	require.NotNil(t, b)
	assert.True(t, b.Interval().Contains(ev.Timestamp))

	rec := tips.NewAllocator(roster).Allocate(ev, b)
	assert.Equal(t, tips.ReasonAllocated, rec.Reason)
	assert.True(t, rec.Window.Start.Equal(at(13, 0)))
}
