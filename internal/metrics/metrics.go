// Package metrics records client-side interview metrics on a private registry.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "interviewcoach"

// Turn outcomes.
const (
	OutcomeAnswered = "answered"
	OutcomeTimeout  = "timeout"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
)

// Recorder owns the client metrics. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	apiRequests     *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	turns           *prometheus.CounterVec
	captureFailures *prometheus.CounterVec
	sessions        *prometheus.CounterVec
}

// NewRecorder creates a Recorder registered on a fresh registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	auto := promauto.With(registry)

	return &Recorder{
		registry: registry,
		apiRequests: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of API requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		apiLatency: auto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Duration of API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		turns: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "turns_total",
			Help:      "Interview turns by outcome",
		}, []string{"outcome"}),
		captureFailures: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "capture",
			Name:      "failures_total",
			Help:      "Speech capture failures by kind",
		}, []string{"kind"}),
		sessions: auto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "interview",
			Name:      "sessions_total",
			Help:      "Interview sessions by final state",
		}, []string{"state"}),
	}
}

// ObserveRequest records one API round trip. status 0 means a transport failure.
func (r *Recorder) ObserveRequest(endpoint string, status int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.apiRequests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	r.apiLatency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// Turn records the outcome of one interview turn.
func (r *Recorder) Turn(outcome string) {
	if r == nil {
		return
	}
	r.turns.WithLabelValues(outcome).Inc()
}

// CaptureFailure records a failed capture attempt.
func (r *Recorder) CaptureFailure(kind string) {
	if r == nil {
		return
	}
	r.captureFailures.WithLabelValues(kind).Inc()
}

// SessionEnded records how a session finished.
func (r *Recorder) SessionEnded(state string) {
	if r == nil {
		return
	}
	r.sessions.WithLabelValues(state).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
