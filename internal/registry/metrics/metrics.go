package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the pass registry.
// Tracks lifecycle transition counts and critical path durations.
type Metrics struct {
	PassesIssued      prometheus.Counter
	BulkBatches       prometheus.Counter
	PassesRevoked     prometheus.Counter
	PassesTransferred prometheus.Counter
	PassesRestored    prometheus.Counter
	IssueDuration     prometheus.Histogram
	TransferDuration  prometheus.Histogram
	RevokeDuration    prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		PassesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passgate_passes_issued_total",
			Help: "Total number of passes issued (single and bulk)",
		}),
		BulkBatches: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passgate_bulk_batches_total",
			Help: "Total number of successful bulk issuance batches",
		}),
		PassesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passgate_passes_revoked_total",
			Help: "Total number of passes revoked (holder revoke and admin freeze)",
		}),
		PassesTransferred: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passgate_passes_transferred_total",
			Help: "Total number of ownership transfers (including returns to issuer)",
		}),
		PassesRestored: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passgate_passes_restored_total",
			Help: "Total number of revocation flags cleared by restore/reissue",
		}),
		IssueDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_issue_duration_seconds",
			Help:    "Duration of issuance operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		TransferDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_transfer_duration_seconds",
			Help:    "Duration of transfer operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RevokeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "passgate_revoke_duration_seconds",
			Help:    "Duration of revoke/freeze operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// All helpers are nil-safe so services can run without metrics in tests.

func (m *Metrics) IncPassesIssued(n int) {
	if m == nil {
		return
	}
	m.PassesIssued.Add(float64(n))
}

func (m *Metrics) IncBulkBatches() {
	if m == nil {
		return
	}
	m.BulkBatches.Inc()
}

func (m *Metrics) IncPassesRevoked() {
	if m == nil {
		return
	}
	m.PassesRevoked.Inc()
}

func (m *Metrics) IncPassesTransferred() {
	if m == nil {
		return
	}
	m.PassesTransferred.Inc()
}

func (m *Metrics) IncPassesRestored() {
	if m == nil {
		return
	}
	m.PassesRestored.Inc()
}

func (m *Metrics) ObserveIssue(start time.Time) {
	if m == nil {
		return
	}
	m.IssueDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveTransfer(start time.Time) {
	if m == nil {
		return
	}
	m.TransferDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveRevoke(start time.Time) {
	if m == nil {
		return
	}
	m.RevokeDuration.Observe(time.Since(start).Seconds())
}
