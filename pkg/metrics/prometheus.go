package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockrate"

// Recorder records pipeline, provider and HTTP metrics.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	pipelineDuration *prometheus.HistogramVec
	providerRequests *prometheus.CounterVec
	providerThrottle *prometheus.CounterVec
	finalRate        prometheus.Histogram
	errorsTotal      *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// New creates a recorder on its own registry, including Go runtime collectors
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		pipelineDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Duration of one ticker rating run",
				Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"outcome"},
		),
		providerRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_requests_total",
				Help:      "Market data provider requests by statement and result",
			},
			[]string{"statement", "result"},
		),
		providerThrottle: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_throttled_total",
				Help:      "Provider replies carrying a rate-limit notice",
			},
			[]string{"statement"},
		),
		finalRate: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "final_rate",
				Help:      "Distribution of computed final ratings",
				Buckets:   prometheus.LinearBuckets(10, 10, 10),
			},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total number of errors encountered",
			},
			[]string{"type"},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
	}
}

// Handler exposes the registry for scraping
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObservePipeline records one pipeline run
func (r *Recorder) ObservePipeline(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.pipelineDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordProviderRequest records one provider request outcome
func (r *Recorder) RecordProviderRequest(statement, result string) {
	if r == nil {
		return
	}
	r.providerRequests.WithLabelValues(statement, result).Inc()
}

// RecordProviderThrottle records a rate-limit notice
func (r *Recorder) RecordProviderThrottle(statement string) {
	if r == nil {
		return
	}
	r.providerThrottle.WithLabelValues(statement).Inc()
}

// ObserveFinalRate records a computed rating
func (r *Recorder) ObserveFinalRate(rate int) {
	if r == nil {
		return
	}
	r.finalRate.Observe(float64(rate))
}

// RecordError records an error occurrence
func (r *Recorder) RecordError(kind string) {
	if r == nil {
		return
	}
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// ObserveHTTP records one served request
func (r *Recorder) ObserveHTTP(route, method string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	r.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}
