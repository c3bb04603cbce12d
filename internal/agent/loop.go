package agent

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/tiaan720/generic-agent-app/internal/observe"
	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// Defaults applied by [New] to zero-valued [Config] fields.
const (
	DefaultMaxRounds      = 10
	DefaultMaxToolRetries = 1
)

// Config describes one agent.
type Config struct {
	// Name identifies the agent in events, logs, and metrics.
	Name string

	// SystemPrompt is the first message of every run.
	SystemPrompt string

	// Temperature is the sampling temperature the agent's adapter was built
	// with. The loop only reports it.
	Temperature float64

	// MaxRounds bounds the number of model invocations per run.
	// Zero selects [DefaultMaxRounds].
	MaxRounds int

	// MaxToolRetries is the number of consecutive failed tool calls the
	// model may recover from. Zero selects [DefaultMaxToolRetries]; a
	// negative value fails the run on the first tool error.
	MaxToolRetries int

	// Tools is the set of tools offered to the model. Must not be nil.
	Tools *tools.Set
}

// ToolExecution records one tool call made during a run.
type ToolExecution struct {
	Round     int           `json:"round"`
	Tool      string        `json:"tool"`
	Arguments string        `json:"arguments"`
	Output    string        `json:"output,omitempty"`
	ErrorKind string        `json:"error_kind,omitempty"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration_ns"`
}

// Result is the outcome of a run. It is always returned, whether the run
// succeeded or not.
type Result struct {
	// Text is the final answer. Empty when State is FAILED.
	Text string `json:"text"`

	// State is DONE or FAILED.
	State State `json:"state"`

	// Failure is set when State is FAILED.
	Failure *Failure `json:"failure,omitempty"`

	// Trace is the full message history of the run.
	Trace []llm.Message `json:"trace"`

	// Rounds is the number of model invocations made.
	Rounds int `json:"rounds"`

	// ToolExecutions lists every tool call in order.
	ToolExecutions []ToolExecution `json:"tool_executions"`
}

// Loop runs requests for a single agent.
type Loop struct {
	cfg      Config
	adapter  ModelAdapter
	observer Observer
	metrics  *observe.Metrics
}

// Option is a functional option for [New].
type Option func(*Loop)

// WithObserver registers an observer for every run started by the loop.
// A per-run observer can also be passed to [Loop.RunObserved].
func WithObserver(o Observer) Option {
	return func(l *Loop) { l.observer = o }
}

// WithMetrics records run, round, and tool metrics to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(l *Loop) { l.metrics = m }
}

// New validates cfg, applies defaults, and returns a Loop.
func New(cfg Config, adapter ModelAdapter, opts ...Option) (*Loop, error) {
	if cfg.Name == "" {
		return nil, errors.New("agent: Name must not be empty")
	}
	if cfg.Tools == nil {
		return nil, errors.New("agent: Tools must not be nil")
	}
	if adapter == nil {
		return nil, errors.New("agent: adapter must not be nil")
	}
	if cfg.MaxRounds < 0 {
		return nil, fmt.Errorf("agent: MaxRounds must not be negative, got %d", cfg.MaxRounds)
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	switch {
	case cfg.MaxToolRetries == 0:
		cfg.MaxToolRetries = DefaultMaxToolRetries
	case cfg.MaxToolRetries < 0:
		cfg.MaxToolRetries = 0
	}

	l := &Loop{cfg: cfg, adapter: adapter}
	for _, o := range opts {
		o(l)
	}
	return l, nil
}

// Config returns the loop's effective configuration.
func (l *Loop) Config() Config { return l.cfg }

// Run executes query to completion. See [Loop.RunObserved].
func (l *Loop) Run(ctx context.Context, query string) *Result {
	return l.RunObserved(ctx, query, nil)
}

// RunObserved executes query to completion, delivering events to the
// loop-level observer and then to obs (when non-nil). It never returns nil
// and never panics on adapter or tool errors.
func (l *Loop) RunObserved(ctx context.Context, query string, obs Observer) *Result {
	ctx, span := observe.StartSpan(ctx, "agent.run",
		trace.WithAttributes(attribute.String("agent", l.cfg.Name)),
	)
	defer span.End()

	start := time.Now()
	if l.metrics != nil {
		l.metrics.ActiveRuns.Add(ctx, 1)
		defer l.metrics.ActiveRuns.Add(ctx, -1)
	}

	r := &run{
		loop: l,
		ctx:  ctx,
		obs:  obs,
		res: &Result{
			State: StateAwaitingModel,
			Trace: []llm.Message{
				{Role: llm.RoleSystem, Content: l.cfg.SystemPrompt},
				{Role: llm.RoleUser, Content: query},
			},
			ToolExecutions: []ToolExecution{},
		},
	}
	r.drive()

	res := r.res
	span.SetAttributes(
		attribute.String("agent.state", string(res.State)),
		attribute.Int("agent.rounds", res.Rounds),
		attribute.Int("agent.tool_executions", len(res.ToolExecutions)),
	)
	kind := ""
	if res.Failure != nil {
		kind = res.Failure.Kind
		span.SetStatus(codes.Error, res.Failure.Message)
		observe.Logger(ctx).Warn("agent: run failed",
			"agent", l.cfg.Name, "kind", kind, "rounds", res.Rounds, "err", res.Failure.Err)
	} else {
		observe.Logger(ctx).Info("agent: run completed",
			"agent", l.cfg.Name, "rounds", res.Rounds, "tools", len(res.ToolExecutions))
	}
	if l.metrics != nil {
		l.metrics.RecordAgentRun(ctx, l.cfg.Name, string(res.State), kind)
		l.metrics.AgentRunDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("agent", l.cfg.Name)),
		)
	}
	return res
}

// run holds the mutable state of a single request.
type run struct {
	loop *Loop
	ctx  context.Context
	obs  Observer
	res  *Result

	round       int
	consecutive int
}

func (r *run) emit(ev Event) {
	ev.Agent = r.loop.cfg.Name
	ev.State = r.res.State
	ev.Round = r.round
	ev.Time = time.Now().UTC()
	if r.loop.observer != nil {
		r.loop.observer(ev)
	}
	if r.obs != nil {
		r.obs(ev)
	}
}

func (r *run) fail(f *Failure) {
	r.res.State = StateFailed
	r.res.Failure = f
	r.res.Text = ""
	r.emit(Event{Type: EventFailed, Failure: f})
}

func (r *run) drive() {
	cfg := r.loop.cfg
	r.emit(Event{Type: EventRunStarted, Text: r.res.Trace[1].Content})

	for {
		if err := r.ctx.Err(); err != nil {
			r.fail(contextFailure(err))
			return
		}
		if r.round+1 > cfg.MaxRounds {
			r.fail(&Failure{
				Kind:    KindRoundLimitExceeded,
				Message: fmt.Sprintf("no final answer after %d model rounds", cfg.MaxRounds),
				Err:     ErrRoundLimitExceeded,
			})
			return
		}
		r.round++
		r.res.Rounds = r.round
		r.res.State = StateAwaitingModel
		if r.loop.metrics != nil {
			r.loop.metrics.RecordAgentRound(r.ctx, cfg.Name)
		}
		r.emit(Event{Type: EventModelRequested})

		dec, err := r.loop.adapter.Decide(r.ctx, slices.Clone(r.res.Trace), cfg.Tools)
		if err != nil {
			if ctxErr := r.ctx.Err(); ctxErr != nil {
				r.fail(contextFailure(ctxErr))
				return
			}
			var mu *ModelUnavailableError
			if !errors.As(err, &mu) {
				err = &ModelUnavailableError{Err: err}
			}
			r.fail(newFailure(KindModelUnavailable, err))
			return
		}

		if dec.Invocation == nil {
			r.res.Trace = append(r.res.Trace, llm.Message{Role: llm.RoleAssistant, Content: dec.Answer})
			r.res.Text = dec.Answer
			r.res.State = StateDone
			r.emit(Event{Type: EventDone, Text: dec.Answer})
			return
		}

		if f := r.execute(*dec.Invocation); f != nil {
			r.fail(f)
			return
		}
	}
}

// execute runs one invocation and appends its result to the history. It
// returns a non-nil Failure when the run must stop.
func (r *run) execute(inv Invocation) *Failure {
	cfg := r.loop.cfg
	r.res.Trace = append(r.res.Trace, llm.Message{
		Role:      llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{{ID: inv.ID, Name: inv.Name, Arguments: inv.Arguments}},
	})
	r.res.State = StateExecutingTool
	r.emit(Event{Type: EventToolStarted, Tool: inv.Name, Arguments: inv.Arguments})

	ctx, span := observe.StartSpan(r.ctx, "agent.tool",
		trace.WithAttributes(attribute.String("tool", inv.Name)),
	)
	start := time.Now()
	out, err := cfg.Tools.Invoke(ctx, inv.Name, inv.Arguments)
	dur := time.Since(start)
	span.End()

	exec := ToolExecution{Round: r.round, Tool: inv.Name, Arguments: inv.Arguments, Duration: dur}

	if err == nil {
		exec.Output = out
		r.res.ToolExecutions = append(r.res.ToolExecutions, exec)
		r.res.Trace = append(r.res.Trace, llm.Message{
			Role:       llm.RoleTool,
			Name:       inv.Name,
			Content:    out,
			ToolCallID: inv.ID,
		})
		r.consecutive = 0
		r.recordTool(inv.Name, "ok", dur)
		r.emit(Event{Type: EventToolCompleted, Tool: inv.Name, Output: out})
		return nil
	}

	if ctxErr := r.ctx.Err(); ctxErr != nil {
		exec.Error = ctxErr.Error()
		r.res.ToolExecutions = append(r.res.ToolExecutions, exec)
		return contextFailure(ctxErr)
	}

	var rec tools.Recoverable
	if !errors.As(err, &rec) {
		rec = &tools.ExecutionError{Tool: inv.Name, Err: err}
	}
	exec.ErrorKind = rec.Kind()
	exec.Error = rec.Error()
	r.res.ToolExecutions = append(r.res.ToolExecutions, exec)
	r.res.Trace = append(r.res.Trace, llm.Message{
		Role:       llm.RoleTool,
		Name:       inv.Name,
		Content:    rec.Feedback(),
		ToolCallID: inv.ID,
	})
	r.consecutive++
	r.recordTool(inv.Name, rec.Kind(), dur)
	r.emit(Event{Type: EventToolFailed, Tool: inv.Name, Output: rec.Feedback()})
	observe.Logger(r.ctx).Debug("agent: tool call failed",
		"agent", cfg.Name, "tool", inv.Name, "kind", rec.Kind(), "consecutive", r.consecutive, "err", err)

	if r.consecutive > cfg.MaxToolRetries {
		return newFailure(rec.Kind(), rec)
	}
	return nil
}

func (r *run) recordTool(name, status string, dur time.Duration) {
	m := r.loop.metrics
	if m == nil {
		return
	}
	m.RecordToolCall(r.ctx, name, status, observe.TransportAgent)
	m.ToolExecutionDuration.Record(r.ctx, dur.Seconds(),
		metric.WithAttributes(
			attribute.String("tool", name),
			attribute.String("transport", observe.TransportAgent),
		),
	)
}
