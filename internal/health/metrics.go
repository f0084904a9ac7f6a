package health

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of one process. Each instance
// owns its registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	httpInFlight        prometheus.Gauge
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	externalCallsTotal   *prometheus.CounterVec
	externalCallDuration *prometheus.HistogramVec

	jobRunsTotal *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		externalCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "external_calls_total",
			Help: "Calls to government permit APIs by source and outcome.",
		}, []string{"source", "outcome"}),
		externalCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "external_call_duration_seconds",
			Help:    "Government permit API latencies in seconds.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20},
		}, []string{"source"}),

		jobRunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduler_job_runs_total",
			Help: "Background job runs by job and outcome.",
		}, []string{"job", "outcome"}),
	}

	m.registry.MustRegister(
		m.httpInFlight, m.httpRequestsTotal, m.httpRequestDuration,
		m.externalCallsTotal, m.externalCallDuration, m.jobRunsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// RequestStarted returns the func that finishes the measurement.
func (m *Metrics) RequestStarted() func(method, route string, status int, elapsed time.Duration) {
	m.httpInFlight.Inc()
	return func(method, route string, status int, elapsed time.Duration) {
		code := strconv.Itoa(status)
		m.httpRequestDuration.WithLabelValues(method, route, code).Observe(elapsed.Seconds())
		m.httpRequestsTotal.WithLabelValues(method, route, code).Inc()
		m.httpInFlight.Dec()
	}
}

// ObserveExternal has the shape of municipal.Observer.
func (m *Metrics) ObserveExternal(source string, err error, elapsed time.Duration) {
	m.externalCallsTotal.WithLabelValues(source, outcome(err)).Inc()
	m.externalCallDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveJob(job string, err error) {
	m.jobRunsTotal.WithLabelValues(job, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
