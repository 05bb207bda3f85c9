// Package metrics holds the Prometheus collectors of the application.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics owns a private registry so several instances can coexist in tests.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpDuration   *prometheus.HistogramVec
	httpRequests   *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	transactions   *prometheus.CounterVec
	loanPayments   prometheus.Counter
	recurringDue   prometheus.Gauge
	publishErrors  *prometheus.CounterVec
	workerRuns     *prometheus.CounterVec
	storeDurations *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_http_request_duration_seconds",
				Help:    "Duration of HTTP requests by route.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_http_requests_total",
				Help: "Total HTTP requests by status class.",
			},
			[]string{"status"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_transactions_created_total",
				Help: "Total transactions recorded by type.",
			},
			[]string{"type"},
		),
		loanPayments: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fintrack_loan_payments_total",
				Help: "Total loan payments applied.",
			},
		),
		recurringDue: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "fintrack_recurring_due",
				Help: "Recurring occurrences due and not yet recorded at the last projection.",
			},
		),
		publishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_event_publish_errors_total",
				Help: "Total events that could not be published.",
			},
			[]string{"event"},
		),
		workerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fintrack_worker_runs_total",
				Help: "Total scheduled worker runs by outcome.",
			},
			[]string{"worker", "outcome"},
		),
		storeDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fintrack_store_operation_duration_seconds",
				Help:    "Duration of store reads and writes.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
	m.httpRequests.WithLabelValues(statusClass(status)).Inc()
}

func (m *Metrics) IncrCacheHit(cache string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrCacheMiss(cache string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(cache).Inc()
}

func (m *Metrics) IncrTransaction(typ string) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(typ).Inc()
}

func (m *Metrics) IncrLoanPayment() {
	if m == nil {
		return
	}
	m.loanPayments.Inc()
}

func (m *Metrics) SetRecurringDue(n int) {
	if m == nil {
		return
	}
	m.recurringDue.Set(float64(n))
}

func (m *Metrics) IncrPublishError(event string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrWorkerRun(worker, outcome string) {
	if m == nil {
		return
	}
	m.workerRuns.WithLabelValues(worker, outcome).Inc()
}

func (m *Metrics) ObserveStore(operation string, d time.Duration) {
	if m == nil {
		return
	}
	m.storeDurations.WithLabelValues(operation).Observe(d.Seconds())
}

// CounterValue reads the current value of a labelled counter. It is meant for
// tests and the health endpoint.
func (m *Metrics) CounterValue(name string, labels ...string) float64 {
	if m == nil {
		return 0
	}
	var c prometheus.Collector
	switch name {
	case "cache_hits":
		c = m.cacheHits.WithLabelValues(labels...)
	case "cache_misses":
		c = m.cacheMisses.WithLabelValues(labels...)
	case "transactions":
		c = m.transactions.WithLabelValues(labels...)
	case "loan_payments":
		c = m.loanPayments
	case "publish_errors":
		c = m.publishErrors.WithLabelValues(labels...)
	case "worker_runs":
		c = m.workerRuns.WithLabelValues(labels...)
	default:
		return 0
	}
	metric := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(metric); err != nil {
		return 0
	}
	if metric.Counter != nil && metric.Counter.Value != nil {
		return *metric.Counter.Value
	}
	return 0
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
