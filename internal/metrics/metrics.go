// Package metrics exposes Prometheus collectors for compiled and executed bulk
// updates.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Compile paths.
const (
	PathJoined = "joined"
	PathSimple = "simple"
	PathNoop   = "noop"
)

// Metrics holds the bulk update collectors. A nil *Metrics records nothing.
type Metrics struct {
	compiled    *prometheus.CounterVec
	batchRows   *prometheus.HistogramVec
	executed    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	affected    *prometheus.CounterVec
	compileErrs *prometheus.CounterVec
}

// New creates unregistered collectors.
func New() *Metrics {
	return &Metrics{
		compiled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updatebulk_statements_compiled_total",
				Help: "Total of compiled bulk update statements",
			},
			[]string{"dialect", "path"},
		),
		batchRows: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "updatebulk_batch_rows",
				Help:    "Rows per compiled bulk update, after dropping rows without assignments",
				Buckets: prometheus.ExponentialBuckets(1, 4, 9),
			},
			[]string{"dialect"},
		),
		executed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updatebulk_statements_executed_total",
				Help: "Total of executed bulk update statements",
			},
			[]string{"dialect", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "updatebulk_execute_duration_seconds",
				Help: "Duration of bulk update execution",
				Buckets: []float64{
					.001, .005, .01, .025, .05, .1, .25, .5, 1,
					2.5, 5, 10, 30, 60,
				},
			},
			[]string{"dialect", "status"},
		),
		affected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updatebulk_rows_affected_total",
				Help: "Total of rows affected by bulk updates",
			},
			[]string{"dialect"},
		),
		compileErrs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "updatebulk_compile_errors_total",
				Help: "Total of rejected bulk update batches",
			},
			[]string{"dialect"},
		),
	}
}

// MustRegister registers every collector on the registerer. It panics if a
// collector with the same name is already registered.
func (m *Metrics) MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(m.compiled, m.batchRows, m.executed, m.duration, m.affected, m.compileErrs)
}

// ObserveCompile samples one compile. rows is ignored for failed compiles.
func (m *Metrics) ObserveCompile(dialect, path string, rows int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.compileErrs.WithLabelValues(dialect).Inc()
		return
	}
	m.compiled.WithLabelValues(dialect, path).Inc()
	if path != PathNoop {
		m.batchRows.WithLabelValues(dialect).Observe(float64(rows))
	}
}

// ObserveExecute samples one statement execution.
func (m *Metrics) ObserveExecute(dialect string, elapsed time.Duration, rowsAffected int64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	labels := prometheus.Labels{
		"dialect": dialect,
		"status":  status,
	}
	m.executed.With(labels).Inc()
	m.duration.With(labels).Observe(elapsed.Seconds())
	if err == nil && rowsAffected > 0 {
		m.affected.WithLabelValues(dialect).Add(float64(rowsAffected))
	}
}
