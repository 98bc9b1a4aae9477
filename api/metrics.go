/*
metrics.go - Prometheus metrics for distribution runs

PURPOSE:
  Counts what every run did so dashboards can alert on data quality drift
  (duplicate feeds, bookings that stop matching, growing overpaid) and on
  reconciliation failures, which always indicate a bug.

REGISTRY:
  Metrics live on their own registry rather than the global default, so
  tests and multiple handlers in one process never collide.

EXPOSED:
  tipengine_runs_total{outcome}            success | configuration_error |
                                           reconciliation_error | cancelled | error
  tipengine_run_duration_seconds           histogram of successful runs
  tipengine_tips_processed_total           tip events allocated
  tipengine_duplicate_transactions_total   dropped duplicate rows
  tipengine_no_booking_match_total         tips allocated by even split
  tipengine_overpaid_amount_total{reason}  overpaid money by reason code
  tipengine_last_run_processed_amount      processed total of the last run
*/
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp/tip-engine/generic"
	"github.com/warp/tip-engine/tips"
)

type Metrics struct {
	Registry *prometheus.Registry

	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	tipsProcessed  prometheus.Counter
	duplicates     prometheus.Counter
	noBookingMatch prometheus.Counter
	overpaid       *prometheus.CounterVec
	lastProcessed  prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipengine_runs_total",
			Help: "Distribution runs by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tipengine_run_duration_seconds",
			Help:    "Wall time of successful distribution runs.",
			Buckets: prometheus.DefBuckets,
		}),
		tipsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipengine_tips_processed_total",
			Help: "Tip events allocated across all runs.",
		}),
		duplicates: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipengine_duplicate_transactions_total",
			Help: "Duplicate transaction rows dropped.",
		}),
		noBookingMatch: factory.NewCounter(prometheus.CounterOpts{
			Name: "tipengine_no_booking_match_total",
			Help: "Tips with no matching booking.",
		}),
		overpaid: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tipengine_overpaid_amount_total",
			Help: "Overpaid tip money by reason code.",
		}, []string{"reason"}),
		lastProcessed: factory.NewGauge(prometheus.GaugeOpts{
			Name: "tipengine_last_run_processed_amount",
			Help: "Processed tip total of the most recent successful run.",
		}),
	}
}

// ObserveRun records a successful run.
func (m *Metrics) ObserveRun(d *tips.Distribution, elapsed time.Duration) {
	m.runs.WithLabelValues("success").Inc()
	m.runDuration.Observe(elapsed.Seconds())
	m.tipsProcessed.Add(float64(len(d.Records)))
	m.duplicates.Add(float64(d.Diagnostics.Tips.Duplicates))
	m.noBookingMatch.Add(float64(d.Diagnostics.NoBookingMatch))
	for reason, amt := range d.Diagnostics.OverpaidByReason {
		// counters cannot go down; net-negative overpaid (refunds) is not counted
		if amt.IsPositive() {
			m.overpaid.WithLabelValues(string(reason)).Add(amt.Value.InexactFloat64())
		}
	}
	m.lastProcessed.Set(d.Ledger.TotalProcessed.Value.InexactFloat64())
}

// ObserveFailure records a run that returned err.
func (m *Metrics) ObserveFailure(err error) {
	m.runs.WithLabelValues(outcome(err)).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	switch {
	case errors.Is(err, generic.ErrReconciliation):
		return "reconciliation_error"
	case errors.Is(err, generic.ErrConfiguration):
		return "configuration_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}
