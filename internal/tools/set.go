package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"

	"github.com/antzucaro/matchr"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// suggestThreshold is the minimum Jaro-Winkler similarity for an unknown
// tool name to receive a "did you mean" suggestion.
const suggestThreshold = 0.7

// entry holds a registered tool and its resolved parameter schema.
type entry struct {
	tool   Tool
	schema *jsonschema.Resolved
}

// Set is an insertion-ordered collection of uniquely named tools.
//
// A Set is safe for concurrent use. The zero value is an empty, usable set.
type Set struct {
	mu    sync.RWMutex
	order []string
	tools map[string]entry
}

// NewSet creates a Set holding tools in the given order.
func NewSet(tools ...Tool) (*Set, error) {
	s := &Set{}
	for _, t := range tools {
		if err := s.Register(t); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register adds t to the set. It returns a [*DuplicateToolError] when a tool
// with the same name is already registered.
func (s *Set) Register(t Tool) error {
	name := t.Definition.Name
	if name == "" {
		return errors.New("tools: tool name must not be empty")
	}
	if t.Handler == nil {
		return fmt.Errorf("tools: tool %q has no handler", name)
	}
	rs, err := t.resolveSchema()
	if err != nil {
		return err
	}
	if t.Definition.Parameters == nil {
		t.Definition.Parameters = t.schemaMap()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tools[name]; ok {
		return &DuplicateToolError{Name: name}
	}
	if s.tools == nil {
		s.tools = make(map[string]entry)
	}
	s.tools[name] = entry{tool: t, schema: rs}
	s.order = append(s.order, name)
	return nil
}

// Get returns the named tool or an [*UnknownToolError].
func (s *Set) Get(name string) (Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tools[name]
	if !ok {
		return Tool{}, s.unknownLocked(name)
	}
	return e.tool, nil
}

// Len returns the number of registered tools.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Names returns tool names in registration order.
func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.order)
}

// Tools returns the registered tools in registration order.
func (s *Set) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].tool)
	}
	return out
}

// Definitions returns the model-facing tool definitions in registration
// order.
func (s *Set) Definitions() []llm.ToolDefinition {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]llm.ToolDefinition, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.tools[name].tool.Definition)
	}
	return out
}

// Invoke validates argsJSON against the named tool's schema and runs its
// handler. An empty argsJSON is treated as "{}".
//
// Errors are always one of [*UnknownToolError], [*InvalidArgumentsError] or
// [*ExecutionError].
func (s *Set) Invoke(ctx context.Context, name, argsJSON string) (string, error) {
	s.mu.RLock()
	e, ok := s.tools[name]
	var unknown error
	if !ok {
		unknown = s.unknownLocked(name)
	}
	s.mu.RUnlock()
	if !ok {
		return "", unknown
	}

	args, err := decodeArgs(argsJSON)
	if err != nil {
		return "", &InvalidArgumentsError{Tool: name, Err: err}
	}
	if err := e.schema.Validate(schemaView(map[string]any(args))); err != nil {
		return "", &InvalidArgumentsError{Tool: name, Err: err}
	}

	out, err := e.tool.Handler(ctx, args)
	if errors.Is(err, ErrBadArgument) {
		return "", &InvalidArgumentsError{Tool: name, Err: err}
	}
	if err != nil {
		return "", &ExecutionError{Tool: name, Err: err}
	}
	return out, nil
}

// unknownLocked builds an UnknownToolError. s.mu must be held.
func (s *Set) unknownLocked(name string) *UnknownToolError {
	e := &UnknownToolError{Name: name, Available: slices.Clone(s.order)}
	best := 0.0
	for _, candidate := range s.order {
		if score := matchr.JaroWinkler(name, candidate, false); score > best {
			best = score
			e.Suggestion = candidate
		}
	}
	if best < suggestThreshold {
		e.Suggestion = ""
	}
	return e
}

// decodeArgs parses a single JSON object, keeping numbers as json.Number.
// Blank input decodes to an empty object.
func decodeArgs(argsJSON string) (Args, error) {
	trimmed := bytes.TrimSpace([]byte(argsJSON))
	if len(trimmed) == 0 {
		return Args{}, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("malformed JSON: %w", err)
	}
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		return nil, errors.New("malformed JSON: trailing data after the arguments object")
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("arguments must be a JSON object, got %s", jsonKind(v))
	}
	return Args(m), nil
}

// schemaView returns a copy of v with json.Number values converted to
// float64 for schema validation. Integers beyond the float64 range become
// ±MaxFloat64, which is still integral.
func schemaView(v any) any {
	switch v := v.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil && math.IsInf(f, 0) {
			return math.Copysign(math.MaxFloat64, f)
		}
		return f
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = schemaView(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = schemaView(e)
		}
		return out
	default:
		return v
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "array"
	case string:
		return "string"
	case json.Number, float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return fmt.Sprintf("%T", v)
	}
}
