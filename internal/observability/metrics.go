package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/3leaps/bucketwalk/pkg/output"
	"github.com/3leaps/bucketwalk/pkg/scan"
)

// Metrics holds a private Prometheus registry with scan and HTTP collectors.
type Metrics struct {
	reg      *prometheus.Registry
	pages    *prometheus.CounterVec
	items    *prometheus.CounterVec
	bytes    *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance with a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucketwalk",
			Subsystem: "scan",
			Name:      "pages_total",
			Help:      "Listing pages fetched.",
		}, []string{"op"}),
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucketwalk",
			Subsystem: "scan",
			Name:      "items_total",
			Help:      "Items the action completed for.",
		}, []string{"op"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucketwalk",
			Subsystem: "scan",
			Name:      "bytes_total",
			Help:      "Bytes of processed items.",
		}, []string{"op"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucketwalk",
			Subsystem: "scan",
			Name:      "failures_total",
			Help:      "Scans that stopped on an error, by error code.",
		}, []string{"op", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bucketwalk",
			Subsystem: "scan",
			Name:      "duration_seconds",
			Help:      "Histogram of scan durations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bucketwalk",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests processed, by status code and method.",
		}, []string{"code", "method"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bucketwalk",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request latencies.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"code", "method"}),
	}

	reg.MustRegister(m.pages, m.items, m.bytes, m.failures, m.duration, m.requests, m.latency)
	return m
}

// ObserveScan records the outcome of one scan. A nil receiver is a no-op.
func (m *Metrics) ObserveScan(op string, sum *scan.Summary, err error) {
	if m == nil {
		return
	}
	if sum != nil {
		m.pages.WithLabelValues(op).Add(float64(sum.Pages))
		m.items.WithLabelValues(op).Add(float64(sum.Items))
		m.bytes.WithLabelValues(op).Add(float64(sum.Bytes))
		m.duration.WithLabelValues(op).Observe(sum.Duration.Seconds())
	}
	if err != nil {
		m.failures.WithLabelValues(op, output.ClassifyError(err)).Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and observes latency by method and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		code := strconv.Itoa(rec.status)
		m.requests.WithLabelValues(code, r.Method).Inc()
		m.latency.WithLabelValues(code, r.Method).Observe(time.Since(start).Seconds())
	})
}
