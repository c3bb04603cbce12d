package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tiaan720/generic-agent-app/internal/observe"
	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// Invocation is a single tool call requested by the model.
type Invocation struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Decision is the model's choice for one round: either a tool
// [Invocation] or a final Answer. A nil Invocation means Answer is final.
type Decision struct {
	Invocation *Invocation
	Answer     string
}

// ModelAdapter turns a conversation history into the next [Decision].
//
// Implementations must be safe for concurrent use and must not modify
// history.
type ModelAdapter interface {
	Decide(ctx context.Context, history []llm.Message, set *tools.Set) (Decision, error)
}

// LLMAdapter implements [ModelAdapter] over an [llm.Provider].
type LLMAdapter struct {
	provider    llm.Provider
	name        string
	temperature float64
	maxTokens   int
	metrics     *observe.Metrics
}

var _ ModelAdapter = (*LLMAdapter)(nil)

// AdapterOption is a functional option for [NewLLMAdapter].
type AdapterOption func(*LLMAdapter)

// WithTemperature sets the sampling temperature sent with every request.
// Zero is sent explicitly.
func WithTemperature(t float64) AdapterOption {
	return func(a *LLMAdapter) { a.temperature = t }
}

// WithMaxTokens caps the completion length. Zero leaves the provider default.
func WithMaxTokens(n int) AdapterOption {
	return func(a *LLMAdapter) { a.maxTokens = n }
}

// WithProviderName sets the provider label used in errors and metrics.
func WithProviderName(name string) AdapterOption {
	return func(a *LLMAdapter) { a.name = name }
}

// WithAdapterMetrics records provider requests, errors, and latency to m.
func WithAdapterMetrics(m *observe.Metrics) AdapterOption {
	return func(a *LLMAdapter) { a.metrics = m }
}

// NewLLMAdapter wraps p. It fails when p's model cannot call tools.
func NewLLMAdapter(p llm.Provider, opts ...AdapterOption) (*LLMAdapter, error) {
	if p == nil {
		return nil, errors.New("agent: provider must not be nil")
	}
	a := &LLMAdapter{provider: p, name: "llm"}
	for _, o := range opts {
		o(a)
	}
	if !p.Capabilities().SupportsToolCalling {
		return nil, fmt.Errorf("agent: provider %q does not support tool calling", a.name)
	}
	return a, nil
}

// Decide implements [ModelAdapter]. When the model requests several tool
// calls at once only the first is used.
func (a *LLMAdapter) Decide(ctx context.Context, history []llm.Message, set *tools.Set) (Decision, error) {
	req := llm.CompletionRequest{
		Messages:       history,
		Temperature:    a.temperature,
		MaxTokens:      a.maxTokens,
		SingleToolCall: true,
	}
	if set != nil {
		req.Tools = set.Definitions()
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, req)
	if a.metrics != nil {
		a.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("provider", a.name)),
		)
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.RecordProviderRequest(ctx, a.name, "llm", "error")
			a.metrics.RecordProviderError(ctx, a.name, "llm")
		}
		return Decision{}, &ModelUnavailableError{Provider: a.name, Err: err}
	}
	if resp == nil {
		return Decision{}, &ModelUnavailableError{Provider: a.name, Err: errors.New("empty response")}
	}
	if a.metrics != nil {
		a.metrics.RecordProviderRequest(ctx, a.name, "llm", "ok")
	}

	if len(resp.ToolCalls) == 0 {
		if resp.FinishReason == llm.FinishLength {
			observe.Logger(ctx).Warn("agent: answer truncated at max tokens",
				"provider", a.name, "max_tokens", a.maxTokens, "completion_tokens", resp.Usage.CompletionTokens)
		}
		return Decision{Answer: resp.Content}, nil
	}
	if len(resp.ToolCalls) > 1 {
		dropped := make([]string, 0, len(resp.ToolCalls)-1)
		for _, tc := range resp.ToolCalls[1:] {
			dropped = append(dropped, tc.Name)
		}
		observe.Logger(ctx).Warn("agent: model requested multiple tool calls, using the first",
			"used", resp.ToolCalls[0].Name, "dropped", dropped)
	}

	tc := resp.ToolCalls[0]
	id := tc.ID
	if id == "" {
		id = fmt.Sprintf("call_%d", len(history))
	}
	return Decision{Invocation: &Invocation{ID: id, Name: tc.Name, Arguments: tc.Arguments}}, nil
}
