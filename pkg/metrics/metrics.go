// Package metrics exposes lending and HTTP counters in Prometheus format.
//
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry so tests and multiple servers in one process never collide.
type Metrics struct {
	registry *prometheus.Registry

	loansCreated      prometheus.Counter
	loansPaidOff      prometheus.Counter
	paymentsRecorded  *prometheus.CounterVec
	paymentsRejected  *prometheus.CounterVec
	requestsTotal     *prometheus.CounterVec
	requestDurationMs *prometheus.HistogramVec
}

// New creates and registers all collectors under namespace.
func New(namespace string) *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.loansCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_created_total",
		Help:      "Number of loans issued.",
	})
	m.loansPaidOff = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "loans_paid_off_total",
		Help:      "Number of loans whose balance reached zero.",
	})
	m.paymentsRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_recorded_total",
		Help:      "Number of payments applied, by payment type.",
	}, []string{"type"})
	m.paymentsRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payments_rejected_total",
		Help:      "Number of payments refused, by error code.",
	}, []string{"code"})
	m.requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Number of HTTP requests served.",
	}, []string{"route", "method", "status"})
	m.requestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_milliseconds",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"route", "method"})

	m.registry.MustRegister(
		m.loansCreated,
		m.loansPaidOff,
		m.paymentsRecorded,
		m.paymentsRejected,
		m.requestsTotal,
		m.requestDurationMs,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoanCreated counts an issued loan.
func (m *Metrics) LoanCreated() {
	if m == nil {
		return
	}
	m.loansCreated.Inc()
}

// PaymentRecorded counts an applied payment and, if it closed the loan, the payoff.
func (m *Metrics) PaymentRecorded(paymentType string, paidOff bool) {
	if m == nil {
		return
	}
	m.paymentsRecorded.WithLabelValues(paymentType).Inc()
	if paidOff {
		m.loansPaidOff.Inc()
	}
}

// PaymentRejected counts a refused payment under its error code.
func (m *Metrics) PaymentRejected(code string) {
	if m == nil {
		return
	}
	m.paymentsRejected.WithLabelValues(code).Inc()
}

// ObserveRequest records one served HTTP request. route is the matched
// template (e.g. /loans/{loan_id}/ledger), never the raw path.
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDurationMs.WithLabelValues(route, method).Observe(float64(elapsed.Microseconds()) / 1000)
}
