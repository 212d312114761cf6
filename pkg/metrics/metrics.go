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

	// TurnsTotal tracks processed chat turns.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_turns_total",
			Help: "Total chat turns processed",
		},
		[]string{"state", "escalated"},
	)

	// TurnDuration tracks end-to-end turn processing time.
	TurnDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "engine_turn_duration_seconds",
			Help:    "End-to-end turn processing duration",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
	)

	// IntentsTotal tracks classified intents.
	IntentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_intents_total",
			Help: "Classified intents by primary tag",
		},
		[]string{"intent"},
	)

	// GuardrailViolationsTotal tracks fired guardrail rules.
	GuardrailViolationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_guardrail_violations_total",
			Help: "Guardrail violations by rule and severity",
		},
		[]string{"rule", "severity", "direction"},
	)

	// ToolCallsTotal tracks tool executions in the orchestration loop.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_tool_calls_total",
			Help: "Tool executions by tool and outcome",
		},
		[]string{"tool", "outcome"},
	)

	// StateTransitionsTotal tracks conversation state machine moves.
	StateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_state_transitions_total",
			Help: "State machine transitions by from and to state",
		},
		[]string{"from", "to"},
	)

	// EscalationsTotal tracks escalations handed to human agents.
	EscalationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_escalations_total",
			Help: "Escalations by trigger",
		},
		[]string{"trigger"},
	)

	// ContextCompactionsTotal tracks summarize/prune passes.
	ContextCompactionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_context_compactions_total",
			Help: "Context window compactions by tier",
		},
		[]string{"tier"},
	)

	// LLMCallDuration tracks model call latency.
	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "LLM call duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
		[]string{"model", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"model", "direction"},
	)

	// LLMRateLimitedTotal counts generations degraded by the LLM budget.
	LLMRateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "llm_rate_limited_total",
			Help: "Generations that fell back because the LLM budget was exhausted",
		},
	)

	// SSEConnectionsActive tracks active SSE connections.
	SSEConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	// SessionsActive tracks open chat sessions.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "engine_sessions_active",
			Help: "Number of open chat sessions",
		},
	)

	// TicketsTotal tracks created support tickets.
	TicketsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_total",
			Help: "Total support tickets created",
		},
	)

	// ProactiveShownTotal tracks surfaced proactive interventions.
	ProactiveShownTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "engine_proactive_shown_total",
			Help: "Proactive opportunities surfaced to users",
		},
		[]string{"type"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMCall records metrics for one model call.
func RecordLLMCall(model, status string, duration float64, tokensIn, tokensOut int) {
	LLMCallDuration.WithLabelValues(model, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(model, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(model, "out").Add(float64(tokensOut))
}

// IncrementSSEConnections increments the active SSE connection count.
func IncrementSSEConnections() {
	SSEConnectionsActive.Inc()
}

// DecrementSSEConnections decrements the active SSE connection count.
func DecrementSSEConnections() {
	SSEConnectionsActive.Dec()
}
