// Package metrics exposes the service's prometheus instruments. All
// methods tolerate a nil receiver so wiring metrics stays optional in
// tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	callbackRequests *prometheus.CounterVec
	callbackDuration *prometheus.HistogramVec
	ledgerEntries    *prometheus.CounterVec
	duplicateReplays prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		callbackRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "casino",
				Subsystem: "callback",
				Name:      "requests_total",
				Help:      "Callback requests partitioned by endpoint and HTTP status code.",
			},
			[]string{"endpoint", "code"},
		),
		callbackDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "casino",
				Subsystem: "callback",
				Name:      "duration_seconds",
				Help:      "Callback handling latency by endpoint.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		ledgerEntries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "casino",
				Subsystem: "ledger",
				Name:      "entries_total",
				Help:      "Ledger entries appended, partitioned by kind.",
			},
			[]string{"kind"},
		),
		duplicateReplays: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: "casino",
				Subsystem: "ledger",
				Name:      "duplicate_replays_total",
				Help:      "Money-moving requests answered from the response cache.",
			},
		),
	}
}

func (m *Metrics) ObserveCallback(endpoint, code string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.callbackRequests.WithLabelValues(endpoint, code).Inc()
	m.callbackDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

func (m *Metrics) LedgerEntryAppended(kind string) {
	if m == nil {
		return
	}

	m.ledgerEntries.WithLabelValues(kind).Inc()
}

func (m *Metrics) DuplicateReplayed() {
	if m == nil {
		return
	}

	m.duplicateReplays.Inc()
}
