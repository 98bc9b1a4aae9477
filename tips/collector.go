package tips

import (
	"log/slog"
	"strings"

	"github.com/warp/tip-engine/generic"
)

// CollectStats counts how raw transactions were filtered.
type CollectStats struct {
	Rows        int
	ZeroTip     int
	OutOfPeriod int
	Duplicates  int
	Refunds     int
	RefundTotal generic.Amount
	Events      int

	DuplicateIDs []generic.TransactionID
}

// CollectTipEvents turns raw transactions into the ordered work list.
//
// Zero tips and rows outside the period are skipped. Within the period, the
// first occurrence of a transaction ID wins; every later occurrence is
// dropped, counted and logged. Negative tips (refunds, voids) are kept.
func CollectTipEvents(raw []TipTransaction, period generic.Period, currency generic.Currency, logger *slog.Logger) ([]TipEvent, CollectStats) {
	if logger == nil {
		logger = slog.Default()
	}
	stats := CollectStats{Rows: len(raw), RefundTotal: generic.Zero(currency)}
	seen := make(map[generic.TransactionID]bool, len(raw))
	events := make([]TipEvent, 0, len(raw))

	for _, tx := range raw {
		if tx.Tip.IsZero() {
			stats.ZeroTip++
			continue
		}
		if tx.Timestamp.IsZero() || !period.Contains(tx.Timestamp) {
			stats.OutOfPeriod++
			continue
		}
		if seen[tx.TransactionID] {
			stats.Duplicates++
			stats.DuplicateIDs = append(stats.DuplicateIDs, tx.TransactionID)
			logger.Warn("duplicate transaction skipped",
				"transaction_id", tx.TransactionID,
				"tip", tx.Tip.StringFixed(2),
				"at", tx.Timestamp)
			continue
		}
		seen[tx.TransactionID] = true

		ev := TipEvent{
			TransactionID: tx.TransactionID,
			Timestamp:     tx.Timestamp,
			Tip:           generic.NewAmountFromDecimal(tx.Tip, currency),
			Customer: Customer{
				ID:    strings.TrimSpace(tx.CustomerID),
				Name:  normalizeSpaces(tx.CustomerName),
				Email: NormalizeEmail(tx.CustomerEmail),
			},
		}
		if ev.IsRefund() {
			stats.Refunds++
			stats.RefundTotal = stats.RefundTotal.Add(ev.Tip)
		}
		events = append(events, ev)
	}
	stats.Events = len(events)

	if stats.Refunds > 0 {
		logger.Info("refund or void tips in period",
			"count", stats.Refunds,
			"total", stats.RefundTotal.Value.StringFixed(2))
	}
	return events, stats
}

// NormalizeEmail lower-cases and trims an address for comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
