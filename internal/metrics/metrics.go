// Package metrics provides Prometheus instrumentation for polysql.
//
// All metrics are prefixed with "polysql_" and registered on the registerer
// passed to New, so several DB values can share one registry. A nil
// *Collector is valid and records nothing.
//
// Statement metrics:
//   - polysql_statements_total: statements by backend, operation and status
//   - polysql_statement_duration_seconds: statement latency by backend and operation
//
// Query log metrics:
//   - polysql_query_log_writes_total: persisted log rows by reason and result
//
// Search metrics:
//   - polysql_search_total: searches by backend and path (native, fallback, plain)
//   - polysql_fts_native_failures_total: native attempts that failed, by backend
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Collector holds the polysql metric vectors.
type Collector struct {
	StatementsTotal   *prometheus.CounterVec
	StatementDuration *prometheus.HistogramVec
	QueryLogWrites    *prometheus.CounterVec
	SearchTotal       *prometheus.CounterVec
	NativeFTSFailures *prometheus.CounterVec
}

// New creates a Collector registered on reg.
// A nil reg registers nothing, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		StatementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polysql_statements_total",
				Help: "Total number of executed statements",
			},
			[]string{"backend", "operation", "status"},
		),
		StatementDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "polysql_statement_duration_seconds",
				Help:    "Statement execution duration in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.5, 1, 2.5, 5},
			},
			[]string{"backend", "operation"},
		),
		QueryLogWrites: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polysql_query_log_writes_total",
				Help: "Total number of query log writes",
			},
			[]string{"reason", "result"},
		),
		SearchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polysql_search_total",
				Help: "Total number of full-text searches by chosen path",
			},
			[]string{"backend", "path"},
		),
		NativeFTSFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "polysql_fts_native_failures_total",
				Help: "Total number of failed native full-text search attempts",
			},
			[]string{"backend"},
		),
	}
}

// ObserveStatement records one executed statement.
func (c *Collector) ObserveStatement(backend, operation string, seconds float64, err error) {
	if c == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	c.StatementsTotal.WithLabelValues(backend, operation, status).Inc()
	c.StatementDuration.WithLabelValues(backend, operation).Observe(seconds)
}

// ObserveQueryLog records one query log write.
func (c *Collector) ObserveQueryLog(reason string, err error) {
	if c == nil {
		return
	}
	result := StatusOK
	if err != nil {
		result = StatusError
	}
	c.QueryLogWrites.WithLabelValues(reason, result).Inc()
}

// ObserveSearch records the path a search took.
func (c *Collector) ObserveSearch(backend, path string) {
	if c == nil {
		return
	}
	c.SearchTotal.WithLabelValues(backend, path).Inc()
}

// ObserveNativeFailure records a failed native full-text search attempt.
func (c *Collector) ObserveNativeFailure(backend string) {
	if c == nil {
		return
	}
	c.NativeFTSFailures.WithLabelValues(backend).Inc()
}
