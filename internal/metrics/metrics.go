// Package metrics provides Prometheus instrumentation for the circulation
// core.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks command throughput, failure reasons and replay cost.
type Metrics struct {
	BooksIssued     prometheus.Counter
	BooksReturned   prometheus.Counter
	CommandFailures *prometheus.CounterVec
	ReconcileRuns   prometheus.Counter
	BooksRepaired   prometheus.Counter
	ReplayDuration  prometheus.Histogram
}

// New creates a Metrics instance registered against the default registry.
// Call it once per process; tests pass nil metrics instead.
func New() *Metrics {
	return &Metrics{
		BooksIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "circulog_books_issued_total",
			Help: "Total number of successful issue commands",
		}),
		BooksReturned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "circulog_books_returned_total",
			Help: "Total number of successful return commands",
		}),
		CommandFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "circulog_command_failures_total",
			Help: "Rejected circulation commands by reason",
		}, []string{"reason"}),
		ReconcileRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "circulog_reconcile_runs_total",
			Help: "Total number of reconciliation runs",
		}),
		BooksRepaired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "circulog_books_repaired_total",
			Help: "Cached statuses rewritten by reconciliation that differed from the ledger",
		}),
		ReplayDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "circulog_replay_duration_seconds",
			Help:    "Duration of full-ledger replay folds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
}

// IssueRecorded counts a successful issue command.
func (m *Metrics) IssueRecorded() {
	if m != nil {
		m.BooksIssued.Inc()
	}
}

// ReturnRecorded counts a successful return command.
func (m *Metrics) ReturnRecorded() {
	if m != nil {
		m.BooksReturned.Inc()
	}
}

// CommandRejected counts a failed command by rejection reason.
func (m *Metrics) CommandRejected(reason string) {
	if m != nil {
		m.CommandFailures.WithLabelValues(reason).Inc()
	}
}

// ReconcileCompleted counts a reconciliation run and how many cached
// statuses it had to rewrite.
func (m *Metrics) ReconcileCompleted(repaired int) {
	if m != nil {
		m.ReconcileRuns.Inc()
		m.BooksRepaired.Add(float64(repaired))
	}
}

// ObserveReplay records the duration of a replay fold started at start.
func (m *Metrics) ObserveReplay(start time.Time) {
	if m != nil {
		m.ReplayDuration.Observe(time.Since(start).Seconds())
	}
}
