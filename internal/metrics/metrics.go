// Package metrics exposes Prometheus counters for the ledger engines.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds engine outcome counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	lotsCreated         *prometheus.CounterVec
	disposalsCreated    *prometheus.CounterVec
	reconcileShortfalls prometheus.Counter
	reconcileFailures   prometheus.Counter
	ledgerRejections    *prometheus.CounterVec
	xirrNonConvergence  prometheus.Counter
	returnsInsufficient *prometheus.CounterVec
}

// New creates the counters on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lotsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_lots_created_total",
				Help: "Holding lots written, by source",
			},
			[]string{"source"},
		),
		disposalsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_disposals_created_total",
				Help: "Lot disposals written, by source",
			},
			[]string{"source"},
		),
		reconcileShortfalls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconcile_shortfalls_total",
			Help: "FIFO disposals that found insufficient open lot quantity",
		}),
		reconcileFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_reconcile_failures_total",
			Help: "Reconciliation runs that failed and were skipped by the sync pipeline",
		}),
		ledgerRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_operation_rejections_total",
				Help: "Manual ledger operations rejected, by reason",
			},
			[]string{"reason"},
		),
		xirrNonConvergence: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "returns_xirr_nonconvergence_total",
			Help: "XIRR solves that did not converge",
		}),
		returnsInsufficient: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "returns_insufficient_data_total",
				Help: "Period results without sufficient data, by period",
			},
			[]string{"period"},
		),
	}

	m.registry.MustRegister(
		m.lotsCreated,
		m.disposalsCreated,
		m.reconcileShortfalls,
		m.reconcileFailures,
		m.ledgerRejections,
		m.xirrNonConvergence,
		m.returnsInsufficient,
	)
	return m
}

// Registry returns the registry holding the ledger counters.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// WriteTextfile writes the counters to path in the Prometheus text format read
// by the node_exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) LotCreated(source string) {
	if m == nil {
		return
	}
	m.lotsCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) DisposalCreated(source string) {
	if m == nil {
		return
	}
	m.disposalsCreated.WithLabelValues(source).Inc()
}

func (m *Metrics) ReconcileShortfall() {
	if m == nil {
		return
	}
	m.reconcileShortfalls.Inc()
}

func (m *Metrics) ReconcileFailure() {
	if m == nil {
		return
	}
	m.reconcileFailures.Inc()
}

func (m *Metrics) LedgerRejection(reason string) {
	if m == nil {
		return
	}
	m.ledgerRejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) XIRRNonConvergence() {
	if m == nil {
		return
	}
	m.xirrNonConvergence.Inc()
}

func (m *Metrics) ReturnsInsufficient(period string) {
	if m == nil {
		return
	}
	m.returnsInsufficient.WithLabelValues(period).Inc()
}
