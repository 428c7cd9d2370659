package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle results
const (
	CycleNoChanges = "no_changes"
	CyclePersisted = "persisted"
	CycleSkipped   = "skipped"
)

// Metrics holds the notifier's collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Cycles           *prometheus.CounterVec
	CommitsNotified  prometheus.Counter
	DeliveriesFailed prometheus.Counter
	ErrorsReported   *prometheus.CounterVec
	LedgerSize       prometheus.Gauge
}

// New creates collectors registered on a private registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commit_notifier_cycles_total",
			Help: "Poll cycles by result.",
		}, []string{"result"}),
		CommitsNotified: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commit_notifier_commits_notified_total",
			Help: "Commit notifications delivered to the sink.",
		}),
		DeliveriesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "commit_notifier_deliveries_failed_total",
			Help: "Commit notifications the sink rejected.",
		}),
		ErrorsReported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "commit_notifier_errors_reported_total",
			Help: "Errors passed to the error reporter, by code.",
		}, []string{"code"}),
		LedgerSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "commit_notifier_ledger_size",
			Help: "Commits recorded in the ledger after the last cycle.",
		}),
	}

	m.registry.MustRegister(m.Cycles, m.CommitsNotified, m.DeliveriesFailed, m.ErrorsReported, m.LedgerSize)
	return m
}

// CycleFinished counts a cycle outcome
func (m *Metrics) CycleFinished(result string, ledgerSize int) {
	if m == nil {
		return
	}
	m.Cycles.WithLabelValues(result).Inc()
	if result != CycleSkipped {
		m.LedgerSize.Set(float64(ledgerSize))
	}
}

// Delivered counts a delivery outcome
func (m *Metrics) Delivered(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.DeliveriesFailed.Inc()
		return
	}
	m.CommitsNotified.Inc()
}

// ErrorReported counts a reported error
func (m *Metrics) ErrorReported(code string) {
	if m == nil {
		return
	}
	m.ErrorsReported.WithLabelValues(code).Inc()
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
