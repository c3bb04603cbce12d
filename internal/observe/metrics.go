// Package observe provides the server's observability primitives:
// OpenTelemetry metrics and tracing, request-scoped structured logging, and
// the HTTP middleware that ties them together.
//
// Metrics are exported for Prometheus through [Init]. Code under test should
// build its own [Metrics] with [NewMetrics] and a manual reader instead of
// relying on [DefaultMetrics].
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// scopeName is the instrumentation scope of every meter and tracer.
const scopeName = "github.com/tiaan720/generic-agent-app"

// Tool call transports reported in the "transport" attribute.
const (
	TransportAgent = "agent"
	TransportMCP   = "mcp"
)

// Metrics holds every instrument the server records to. All instruments are
// safe for concurrent use.
type Metrics struct {
	// LLMDuration is model latency per completion, by provider.
	LLMDuration metric.Float64Histogram

	// ToolExecutionDuration is tool handler latency, by tool and transport.
	ToolExecutionDuration metric.Float64Histogram

	// AgentRunDuration is end-to-end run latency, by agent.
	AgentRunDuration metric.Float64Histogram

	// HTTPRequestDuration is request latency, by method, route, and status.
	HTTPRequestDuration metric.Float64Histogram

	// ProviderRequests counts completions by provider, kind, and status.
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts failed completions by provider and kind.
	ProviderErrors metric.Int64Counter

	// ToolCalls counts tool invocations by tool, status, and transport.
	ToolCalls metric.Int64Counter

	// AgentRuns counts finished runs by agent, terminal state, and failure kind.
	AgentRuns metric.Int64Counter

	// AgentRounds counts model rounds by agent.
	AgentRounds metric.Int64Counter

	// CircuitTransitions counts breaker state changes by provider, from, and to.
	CircuitTransitions metric.Int64Counter

	// ActiveRuns is the number of agent runs in flight.
	ActiveRuns metric.Int64UpDownCounter
}

// latencyBuckets are histogram boundaries in seconds. Model calls dominate,
// so the upper buckets reach the default request timeout.
var latencyBuckets = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewMetrics creates every instrument on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(scopeName)
	met := &Metrics{}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&met.LLMDuration, "agentapp.llm.duration", "Latency of LLM completions."},
		{&met.ToolExecutionDuration, "agentapp.tool_execution.duration", "Latency of tool execution."},
		{&met.AgentRunDuration, "agentapp.agent_run.duration", "End-to-end latency of an agent run."},
		{&met.HTTPRequestDuration, "agentapp.http.request.duration", "HTTP request latency by method, route, and status."},
	}
	for _, h := range histograms {
		inst, err := m.Float64Histogram(h.name,
			metric.WithDescription(h.desc),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(latencyBuckets...),
		)
		if err != nil {
			return nil, err
		}
		*h.dst = inst
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&met.ProviderRequests, "agentapp.provider.requests", "Total provider requests by provider, kind, and status."},
		{&met.ProviderErrors, "agentapp.provider.errors", "Total provider errors by provider and kind."},
		{&met.ToolCalls, "agentapp.tool.calls", "Total tool invocations by tool, status, and transport."},
		{&met.AgentRuns, "agentapp.agent.runs", "Total agent runs by agent, terminal state, and failure kind."},
		{&met.AgentRounds, "agentapp.agent.rounds", "Total model rounds by agent."},
		{&met.CircuitTransitions, "agentapp.circuit.transitions", "Circuit breaker state changes by provider."},
	}
	for _, c := range counters {
		inst, err := m.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = inst
	}

	var err error
	if met.ActiveRuns, err = m.Int64UpDownCounter("agentapp.active_runs",
		metric.WithDescription("Number of agent runs currently in flight."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns a process-wide [Metrics] built on the global meter
// provider at first use. It panics if instrument creation fails.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordProviderRequest counts one completion attempt against provider.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
}

// RecordProviderError counts one failed completion against provider.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordToolCall counts one tool invocation. status is "ok" or a tool error
// kind; transport is [TransportAgent] or [TransportMCP].
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status, transport string) {
	m.ToolCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.String("status", status),
		attribute.String("transport", transport),
	))
}

// RecordAgentRun counts a finished run. kind is empty for successful runs.
func (m *Metrics) RecordAgentRun(ctx context.Context, agent, state, kind string) {
	m.AgentRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("agent", agent),
		attribute.String("state", state),
		attribute.String("kind", kind),
	))
}

// RecordAgentRound counts one model round for agent.
func (m *Metrics) RecordAgentRound(ctx context.Context, agent string) {
	m.AgentRounds.Add(ctx, 1, metric.WithAttributes(attribute.String("agent", agent)))
}

// RecordCircuitTransition counts one breaker state change.
func (m *Metrics) RecordCircuitTransition(ctx context.Context, provider, from, to string) {
	m.CircuitTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("from", from),
		attribute.String("to", to),
	))
}
