// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// CompletionDuration tracks completion-service round trips.
	CompletionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_completion_duration_seconds",
			Help:    "Completion request duration by pipeline stage",
			Buckets: []float64{.1, .25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"model", "stage", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LLMRetriesTotal counts completion calls retried after a timeout.
	LLMRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_retries_total",
			Help: "Completion calls retried after a timeout",
		},
		[]string{"provider"},
	)

	// CapabilityCallsTotal counts capability invocations.
	CapabilityCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "capability_calls_total",
			Help: "Capability invocations by name and outcome",
		},
		[]string{"capability", "status"},
	)

	// CapabilityDuration tracks capability lookup duration.
	CapabilityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "capability_duration_seconds",
			Help:    "Capability lookup duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"capability"},
	)

	// RouterDecisionsTotal counts intent classifications.
	RouterDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "router_decisions_total",
			Help: "Intent router classifications",
		},
		[]string{"label"},
	)

	// TurnsTotal counts completed chat turns by action.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "turns_total",
			Help: "Chat turns by outcome action",
		},
		[]string{"action"},
	)

	// TurnDuration tracks end-to-end turn latency.
	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "turn_duration_seconds",
			Help:    "End-to-end chat turn duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
	)

	// MessagesTotal tracks total messages stored.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages stored",
		},
		[]string{"role"},
	)

	// CacheAppendsTotal counts conversation cache appends.
	CacheAppendsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversation_cache_appends_total",
			Help: "Messages appended to the conversation cache",
		},
	)

	// EventsPublishedTotal tracks turn events sent to NATS.
	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "events_published_total",
			Help: "Turn events published to JetStream",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordCompletion records metrics for one completion round trip.
func RecordCompletion(model, stage, status string, duration float64, tokensIn, tokensOut int) {
	CompletionDuration.WithLabelValues(model, stage, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// RecordCapability records metrics for one capability invocation.
func RecordCapability(name string, success bool, duration float64) {
	status := "success"
	if !success {
		status = "failure"
	}
	CapabilityCallsTotal.WithLabelValues(name, status).Inc()
	CapabilityDuration.WithLabelValues(name).Observe(duration)
}
