package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric exported by the bot
const Namespace = "scrapebot"

// Submission outcomes
const (
	OutcomeAdded     = "added"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors for the bot
type Metrics struct {
	SubmissionsTotal *prometheus.CounterVec

	HandlerInvocationsTotal *prometheus.CounterVec
	HandlerFailuresTotal    *prometheus.CounterVec
	HandlerDurationSeconds  *prometheus.HistogramVec

	BackendOperationSeconds *prometheus.HistogramVec
	BackendErrorsTotal      *prometheus.CounterVec
	CircuitBreakerState     *prometheus.GaugeVec

	RepliesTotal *prometheus.CounterVec

	WorkerPoolSize      prometheus.Gauge
	WorkerTasksRejected prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SubmissionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "submissions_total",
			Help:      "URL submissions by platform and outcome",
		}, []string{"platform", "outcome"}),

		HandlerInvocationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "handler_invocations_total",
			Help:      "Mention and command handler invocations",
		}, []string{"handler"}),
		HandlerFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "handler_failures_total",
			Help:      "Handler invocations that ended in the apology reply",
		}, []string{"handler"}),
		HandlerDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "handler_duration_seconds",
			Help:      "Time spent handling one mention or command",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"handler"}),

		BackendOperationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "backend_operation_seconds",
			Help:      "Duration of queue backend and Slack API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "operation"}),
		BackendErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "backend_errors_total",
			Help:      "Failed queue backend and Slack API calls",
		}, []string{"backend", "operation"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		}, []string{"name"}),

		RepliesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "replies_total",
			Help:      "Replies sent to Slack by kind and outcome",
		}, []string{"kind", "outcome"}),

		WorkerPoolSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "worker_pool_size",
			Help:      "Configured number of event workers",
		}),
		WorkerTasksRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "worker_tasks_rejected_total",
			Help:      "Events dropped because the worker pool was shut down",
		}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

var (
	registry       = newRegistry()
	defaultMetrics = NewMetrics(registry)
)

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Default returns the process-wide collectors
func Default() *Metrics {
	return defaultMetrics
}

// Registry returns the registry the default collectors are registered on
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// RecordSubmission counts one processed URL
func RecordSubmission(platform, outcome string) {
	if platform == "" {
		platform = "unknown"
	}
	defaultMetrics.SubmissionsTotal.WithLabelValues(platform, outcome).Inc()
}

// RecordHandlerInvocation counts a handler run and its duration
func RecordHandlerInvocation(handler string, duration time.Duration) {
	defaultMetrics.HandlerInvocationsTotal.WithLabelValues(handler).Inc()
	defaultMetrics.HandlerDurationSeconds.WithLabelValues(handler).Observe(duration.Seconds())
}

// RecordHandlerFailure counts a handler run caught by the boundary guard
func RecordHandlerFailure(handler string) {
	defaultMetrics.HandlerFailuresTotal.WithLabelValues(handler).Inc()
}

// ObserveBackendOperation records the duration and outcome of a remote call
func ObserveBackendOperation(backend, operation string, duration time.Duration, err error) {
	defaultMetrics.BackendOperationSeconds.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		defaultMetrics.BackendErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}

// SetCircuitBreakerState publishes a breaker state transition
func SetCircuitBreakerState(name string, state float64) {
	defaultMetrics.CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordReply counts a reply sent to Slack
func RecordReply(kind string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	defaultMetrics.RepliesTotal.WithLabelValues(kind, outcome).Inc()
}

// SetWorkerPoolSize publishes the configured worker count
func SetWorkerPoolSize(size int) {
	defaultMetrics.WorkerPoolSize.Set(float64(size))
}

// RecordWorkerRejection counts an event the pool refused
func RecordWorkerRejection() {
	defaultMetrics.WorkerTasksRejected.Inc()
}

// ObserveHTTPRequest records one served HTTP request
func ObserveHTTPRequest(route, method, status string, duration time.Duration) {
	defaultMetrics.HTTPRequestsTotal.WithLabelValues(route, method, status).Inc()
	defaultMetrics.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}
