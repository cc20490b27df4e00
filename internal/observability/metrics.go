package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "rtctoken"

// Metrics holds Prometheus collectors for the service. A nil *Metrics is a no-op.
type Metrics struct {
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorTotal      *prometheus.CounterVec
	issuedTotal     *prometheus.CounterVec
	persistTotal    *prometheus.CounterVec
}

// NewMetrics creates collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of error responses by code",
		}, []string{"route", "method", "code"}),
		issuedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Total number of issued tokens by kind",
		}, []string{"kind"}),
		persistTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_persist_total",
			Help:      "Credential record writes by outcome",
		}, []string{"status"}),
	}
	reg.MustRegister(m.requestTotal, m.requestDuration, m.errorTotal, m.issuedTotal, m.persistTotal)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(route, method, code).Inc()
}

// RecordIssued counts a signed token of the given kind ("rtc" or "rtm").
func (m *Metrics) RecordIssued(kind string) {
	if m == nil {
		return
	}
	m.issuedTotal.WithLabelValues(kind).Inc()
}

// RecordPersist counts a credential write outcome.
func (m *Metrics) RecordPersist(status string) {
	if m == nil {
		return
	}
	m.persistTotal.WithLabelValues(status).Inc()
}
