package tools

import (
	"fmt"
	"strings"
)

// Error kinds reported by the tool layer. The agent loop surfaces these in
// failed results.
const (
	KindUnknownTool      = "unknown_tool"
	KindInvalidArguments = "invalid_arguments"
	KindToolFailed       = "tool_failed"
)

// DuplicateToolError is returned by [Set.Register] when a tool with the same
// name is already registered.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tools: tool %q already registered", e.Name)
}

// UnknownToolError is returned when the requested tool is not in the set.
type UnknownToolError struct {
	Name       string
	Available  []string
	Suggestion string
}

func (e *UnknownToolError) Error() string {
	msg := fmt.Sprintf("tools: unknown tool %q", e.Name)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", e.Suggestion)
	}
	return msg
}

// Kind returns [KindUnknownTool].
func (e *UnknownToolError) Kind() string { return KindUnknownTool }

// Feedback is the message fed back to the model so it can pick a valid tool.
func (e *UnknownToolError) Feedback() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Error: tool %q does not exist.", e.Name)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " Did you mean %q?", e.Suggestion)
	}
	if len(e.Available) > 0 {
		fmt.Fprintf(&b, " Available tools: %s.", strings.Join(e.Available, ", "))
	}
	return b.String()
}

// InvalidArgumentsError is returned when tool arguments are malformed or do
// not satisfy the tool's parameter schema.
type InvalidArgumentsError struct {
	Tool string
	Err  error
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("tools: invalid arguments for %q: %v", e.Tool, e.Err)
}

func (e *InvalidArgumentsError) Unwrap() error { return e.Err }

// Kind returns [KindInvalidArguments].
func (e *InvalidArgumentsError) Kind() string { return KindInvalidArguments }

// Feedback is the message fed back to the model.
func (e *InvalidArgumentsError) Feedback() string {
	return fmt.Sprintf("Error: invalid arguments for tool %q: %v", e.Tool, e.Err)
}

// ExecutionError wraps an error returned by a tool handler.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tools: %q failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Kind returns [KindToolFailed].
func (e *ExecutionError) Kind() string { return KindToolFailed }

// Feedback is the message fed back to the model.
func (e *ExecutionError) Feedback() string {
	return fmt.Sprintf("Error: tool %q failed: %v", e.Tool, e.Err)
}

// Recoverable is implemented by the tool errors the agent loop reports back
// to the model instead of aborting immediately.
type Recoverable interface {
	error
	Kind() string
	Feedback() string
}

var (
	_ Recoverable = (*UnknownToolError)(nil)
	_ Recoverable = (*InvalidArgumentsError)(nil)
	_ Recoverable = (*ExecutionError)(nil)
)
