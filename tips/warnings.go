package tips

import "github.com/warp/tip-engine/generic"

// WarningKind names a non-fatal data quality condition.
type WarningKind string

const (
	WarnDuplicateTransaction WarningKind = "DUPLICATE_TRANSACTION"
	WarnDefaultedDuration    WarningKind = "DEFAULTED_BOOKING_DURATION"
	WarnInvalidShift         WarningKind = "INVALID_SHIFT"
	WarnNoBookingMatch       WarningKind = "NO_BOOKING_MATCH"
	WarnNoEligibleWorker     WarningKind = "NO_ELIGIBLE_WORKER"
	WarnNoWorkerFound        WarningKind = "NO_WORKER_FOUND"
)

// Warning aggregates one kind of condition over a run. TransactionIDs lists
// the affected tips where the condition is per tip.
type Warning struct {
	Kind           WarningKind
	Count          int
	TransactionIDs []generic.TransactionID
}

// warningsFor builds the warning list of a run in a fixed kind order,
// omitting kinds that did not occur.
func warningsFor(d Diagnostics, records []AllocationRecord) []Warning {
	perTip := map[WarningKind][]generic.TransactionID{}
	for _, rec := range records {
		if rec.Booking == nil {
			perTip[WarnNoBookingMatch] = append(perTip[WarnNoBookingMatch], rec.Event.TransactionID)
		}
		switch rec.Reason {
		case ReasonNoEligibleWorker:
			perTip[WarnNoEligibleWorker] = append(perTip[WarnNoEligibleWorker], rec.Event.TransactionID)
		case ReasonNoWorkerFound:
			perTip[WarnNoWorkerFound] = append(perTip[WarnNoWorkerFound], rec.Event.TransactionID)
		}
	}

	all := []Warning{
		{Kind: WarnDuplicateTransaction, Count: d.Tips.Duplicates, TransactionIDs: d.Tips.DuplicateIDs},
		{Kind: WarnDefaultedDuration, Count: d.Bookings.DefaultedDuration},
		{Kind: WarnInvalidShift, Count: d.Roster.Invalid},
		{Kind: WarnNoBookingMatch, Count: len(perTip[WarnNoBookingMatch]), TransactionIDs: perTip[WarnNoBookingMatch]},
		{Kind: WarnNoEligibleWorker, Count: len(perTip[WarnNoEligibleWorker]), TransactionIDs: perTip[WarnNoEligibleWorker]},
		{Kind: WarnNoWorkerFound, Count: len(perTip[WarnNoWorkerFound]), TransactionIDs: perTip[WarnNoWorkerFound]},
	}
	out := all[:0]
	for _, w := range all {
		if w.Count > 0 {
			out = append(out, w)
		}
	}
	return out
}
