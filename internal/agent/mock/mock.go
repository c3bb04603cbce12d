// Package mock provides a scripted implementation of [agent.ModelAdapter] for
// use in unit tests.
//
// The mock is safe for concurrent use, records every call, and exposes
// exported fields for configuring return values.
//
// Example:
//
//	a := &mock.Adapter{Steps: []mock.Step{
//	    mock.Call("plus_calculator", `{"a":2,"b":3}`),
//	    mock.Answer("5"),
//	}}
//	loop, _ := agent.New(cfg, a)
package mock

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tiaan720/generic-agent-app/internal/agent"
	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// Step is one scripted response from [Adapter.Decide].
type Step struct {
	Decision agent.Decision
	Err      error
}

// Call returns a Step requesting the named tool.
func Call(name, args string) Step {
	return Step{Decision: agent.Decision{Invocation: &agent.Invocation{Name: name, Arguments: args}}}
}

// Answer returns a Step producing a final answer.
func Answer(text string) Step {
	return Step{Decision: agent.Decision{Answer: text}}
}

// Fail returns a Step that makes Decide return err.
func Fail(err error) Step {
	return Step{Err: err}
}

// DecideCall records the arguments of a single [Adapter.Decide] invocation.
type DecideCall struct {
	// History is a copy of the history passed to Decide.
	History []llm.Message
	// Tools lists the names of the tools offered.
	Tools []string
}

// Adapter is a mock implementation of [agent.ModelAdapter].
//
// Decide consumes Steps in order. Once they are exhausted it returns
// Fallback when set, or an error otherwise. When DecideFunc is set it takes
// precedence over both.
type Adapter struct {
	mu sync.Mutex

	// Steps are returned in order, one per call.
	Steps []Step

	// Fallback is returned after Steps are exhausted.
	Fallback *Step

	// DecideFunc, when non-nil, handles every call.
	DecideFunc func(ctx context.Context, history []llm.Message, set *tools.Set) (agent.Decision, error)

	// DecideCalls records all Decide invocations.
	DecideCalls []DecideCall

	next int
}

var _ agent.ModelAdapter = (*Adapter)(nil)

// Decide implements [agent.ModelAdapter].
func (a *Adapter) Decide(ctx context.Context, history []llm.Message, set *tools.Set) (agent.Decision, error) {
	a.mu.Lock()
	call := DecideCall{History: slices.Clone(history)}
	if set != nil {
		call.Tools = set.Names()
	}
	a.DecideCalls = append(a.DecideCalls, call)
	fn := a.DecideFunc

	var step *Step
	switch {
	case fn != nil:
	case a.next < len(a.Steps):
		s := a.Steps[a.next]
		a.next++
		step = &s
	case a.Fallback != nil:
		s := *a.Fallback
		step = &s
	}
	a.mu.Unlock()

	if fn != nil {
		return fn(ctx, history, set)
	}
	if step == nil {
		return agent.Decision{}, fmt.Errorf("mock: no scripted decision for call %d", len(a.Calls()))
	}
	if step.Err != nil {
		return agent.Decision{}, step.Err
	}
	d := step.Decision
	if d.Invocation != nil {
		inv := *d.Invocation
		if inv.ID == "" {
			inv.ID = fmt.Sprintf("call_%d", len(history))
		}
		d.Invocation = &inv
	}
	return d, nil
}

// Calls returns a copy of all recorded Decide calls.
func (a *Adapter) Calls() []DecideCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.DecideCalls)
}

// Reset clears recorded calls and rewinds Steps.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.DecideCalls = nil
	a.next = 0
}
