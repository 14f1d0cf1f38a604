package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dbsync"

// Metrics holds the sync collectors.
type Metrics struct {
	TablesTotal  *prometheus.CounterVec
	RowsAffected *prometheus.CounterVec
	RunsTotal    *prometheus.CounterVec
	RunDuration  *prometheus.HistogramVec
	RunsActive   prometheus.Gauge

	gatherer prometheus.Gatherer
}

// New registers the sync collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the sync collectors on reg and serves them from gatherer.
func NewWith(reg prometheus.Registerer, gatherer prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		TablesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "tables_total",
			Help:      "Tables reconciled, by operation and outcome",
		}, []string{"operation", "status"}),
		RowsAffected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconcile",
			Name:      "rows_affected_total",
			Help:      "Rows written to the target",
		}, []string{"operation", "table"}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "total",
			Help:      "Sync runs, by operation and outcome",
		}, []string{"operation", "status", "dry_run"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of sync runs",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 8),
		}, []string{"operation"}),
		RunsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "active",
			Help:      "Sync runs in progress",
		}),
		gatherer: gatherer,
	}
}

// ObserveTable records the completion of one table.
func (m *Metrics) ObserveTable(operation, table string, rows int64, err error) {
	if err != nil {
		m.TablesTotal.WithLabelValues(operation, "error").Inc()
		return
	}
	m.TablesTotal.WithLabelValues(operation, "ok").Inc()
	m.RowsAffected.WithLabelValues(operation, table).Add(float64(rows))
}

// ObserveRun records a finished run.
func (m *Metrics) ObserveRun(operation string, dryRun bool, elapsed time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	dry := "false"
	if dryRun {
		dry = "true"
	}
	m.RunsTotal.WithLabelValues(operation, status, dry).Inc()
	m.RunDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
