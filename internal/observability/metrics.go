// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ledger metrics
	TransactionsCommitted prometheus.Counter
	TransactionsReverted  *prometheus.CounterVec

	// Sale metrics
	SalesCreated   prometheus.Counter
	Deposits       prometheus.Counter
	SalesFinalized prometheus.Counter
	SalesFailed    prometheus.Counter
	Claims         *prometheus.CounterVec
	LeftoverBurns  prometheus.Counter
	FeesPaid       *prometheus.CounterVec
	SalesByPhase   *prometheus.GaugeVec

	// Vault metrics
	LocksCreated  prometheus.Counter
	LockMutations *prometheus.CounterVec
	Withdrawals   prometheus.Counter
	ActiveLocks   prometheus.Gauge

	// Indexer metrics
	EventsIndexed     *prometheus.CounterVec
	EventStoreErrors  prometheus.Counter
	EventStoreLatency prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec

	registry prometheus.Gatherer
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(namespace, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
}

// NewIsolatedMetrics creates metrics on a private registry. Used by tests
// and by binaries that build more than one ledger.
func NewIsolatedMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	return NewMetricsWith(namespace, reg, reg)
}

// NewMetricsWith creates metrics registered on reg.
func NewMetricsWith(namespace string, reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	if namespace == "" {
		namespace = "token_launchpad"
	}
	f := promauto.With(reg)

	return &Metrics{
		TransactionsCommitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_committed_total",
			Help:      "Total number of committed transactions",
		}),
		TransactionsReverted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transactions_reverted_total",
			Help:      "Total number of reverted transactions by error kind",
		}, []string{"kind"}),

		SalesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "created_total",
			Help:      "Total number of sales created",
		}),
		Deposits: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "deposits_total",
			Help:      "Total number of accepted deposits",
		}),
		SalesFinalized: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "finalized_total",
			Help:      "Total number of finalized sales",
		}),
		SalesFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "force_failed_total",
			Help:      "Total number of force-failed sales",
		}),
		Claims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "claims_total",
			Help:      "Total number of claims by type",
		}, []string{"type"}),
		LeftoverBurns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "leftover_burns_total",
			Help:      "Total number of leftover burns",
		}),
		FeesPaid: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "fees_paid_total",
			Help:      "Total number of fee payments by label",
		}, []string{"label"}),
		SalesByPhase: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sale",
			Name:      "by_phase",
			Help:      "Number of known sales per phase",
		}, []string{"phase"}),

		LocksCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "locks_created_total",
			Help:      "Total number of lock entries created",
		}),
		LockMutations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "lock_mutations_total",
			Help:      "Total number of lock mutations by operation",
		}, []string{"op"}),
		Withdrawals: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "withdrawals_total",
			Help:      "Total number of vault withdrawals",
		}),
		ActiveLocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "active_locks",
			Help:      "Number of lock entries created minus fully withdrawn or migrated",
		}),

		EventsIndexed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "events_indexed_total",
			Help:      "Total number of events persisted by kind",
		}, []string{"kind"}),
		EventStoreErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "store_errors_total",
			Help:      "Total number of failed event store writes",
		}),
		EventStoreLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "store_latency_seconds",
			Help:      "Event store write latency",
			Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1},
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status",
		}, []string{"route", "status"}),

		registry: gatherer,
	}
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
