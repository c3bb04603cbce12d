// Package registry holds the immutable catalog of agents served by the API.
//
// A [Registry] preserves insertion order, so listings are stable across
// requests. It is built once at startup and shared read-only by all
// handlers.
package registry

import (
	"errors"
	"fmt"
	"slices"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tiaan720/generic-agent-app/internal/tools"
)

// ErrAgentNotFound is returned by [Registry.Lookup] for unknown IDs.
var ErrAgentNotFound = errors.New("registry: agent not found")

// Agent is a registered agent: its catalog metadata plus the runtime
// configuration used to build its loop.
type Agent struct {
	ID             string
	Name           string
	Description    string
	Category       string
	PrimaryColor   string
	Icon           string
	ExampleQueries []string

	SystemPrompt string
	Temperature  float64
	Tools        *tools.Set
}

// ToolInfo is the catalog view of a tool.
type ToolInfo struct {
	Name        string                                 `json:"name"`
	Description string                                 `json:"description"`
	Parameters  *orderedmap.OrderedMap[string, string] `json:"parameters"`
	Icon        string                                 `json:"icon"`
}

// AgentInfo is the catalog view of an agent returned to the frontend.
type AgentInfo struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Category       string     `json:"category"`
	Tools          []ToolInfo `json:"tools"`
	PrimaryColor   string     `json:"primary_color"`
	Icon           string     `json:"icon"`
	ExampleQueries []string   `json:"example_queries"`
}

// Info returns the catalog view of a.
func (a Agent) Info() AgentInfo {
	info := AgentInfo{
		ID:             a.ID,
		Name:           a.Name,
		Description:    a.Description,
		Category:       a.Category,
		Tools:          []ToolInfo{},
		PrimaryColor:   a.PrimaryColor,
		Icon:           a.Icon,
		ExampleQueries: slices.Clone(a.ExampleQueries),
	}
	if info.ExampleQueries == nil {
		info.ExampleQueries = []string{}
	}
	if a.Tools != nil {
		for _, t := range a.Tools.Tools() {
			info.Tools = append(info.Tools, ToolInfo{
				Name:        t.Name(),
				Description: t.Definition.Description,
				Parameters:  t.ParamSummary(),
				Icon:        t.Icon,
			})
		}
	}
	return info
}

// Registry is an insertion-ordered, immutable set of agents.
type Registry struct {
	order []string
	byID  map[string]Agent
}

// New builds a Registry. It rejects empty and duplicate IDs.
func New(agents ...Agent) (*Registry, error) {
	r := &Registry{byID: make(map[string]Agent, len(agents))}
	var errs []error
	for i, a := range agents {
		switch {
		case a.ID == "":
			errs = append(errs, fmt.Errorf("registry: agent %d has an empty ID", i))
			continue
		case a.Tools == nil:
			errs = append(errs, fmt.Errorf("registry: agent %q has no tool set", a.ID))
			continue
		}
		if _, dup := r.byID[a.ID]; dup {
			errs = append(errs, fmt.Errorf("registry: duplicate agent ID %q", a.ID))
			continue
		}
		a.ExampleQueries = slices.Clone(a.ExampleQueries)
		r.byID[a.ID] = a
		r.order = append(r.order, a.ID)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return r, nil
}

// Lookup returns the agent with the given ID or [ErrAgentNotFound].
func (r *Registry) Lookup(id string) (Agent, error) {
	a, ok := r.byID[id]
	if !ok {
		return Agent{}, fmt.Errorf("%w: %q", ErrAgentNotFound, id)
	}
	a.ExampleQueries = slices.Clone(a.ExampleQueries)
	return a, nil
}

// List returns all agents in registration order.
func (r *Registry) List() []Agent {
	out := make([]Agent, 0, len(r.order))
	for _, id := range r.order {
		a := r.byID[id]
		a.ExampleQueries = slices.Clone(a.ExampleQueries)
		out = append(out, a)
	}
	return out
}

// ByCategory returns the agents whose Category equals category, in
// registration order.
func (r *Registry) ByCategory(category string) []Agent {
	var out []Agent
	for _, a := range r.List() {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out
}

// Categories returns the distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	var out []string
	for _, id := range r.order {
		if c := r.byID[id].Category; !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of registered agents.
func (r *Registry) Len() int { return len(r.order) }
