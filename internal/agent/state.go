// Package agent runs the bounded agent/tool dispatch loop.
//
// A [Loop] owns one agent's configuration: its system prompt, its
// [tools.Set], and the [ModelAdapter] that decides each step. [Loop.Run]
// drives a single request through the states
//
//	AWAITING_MODEL -> EXECUTING_TOOL -> AWAITING_MODEL -> ... -> DONE | FAILED
//
// appending every step to an append-only message history, and always
// returns a [Result]. Loops hold no per-request state and are safe for
// concurrent use.
package agent

// State is the loop's position in a run.
type State string

const (
	// StateAwaitingModel means the loop is waiting for the model's decision.
	StateAwaitingModel State = "AWAITING_MODEL"

	// StateExecutingTool means the loop is running a requested tool.
	StateExecutingTool State = "EXECUTING_TOOL"

	// StateDone is terminal: the model produced a final answer.
	StateDone State = "DONE"

	// StateFailed is terminal: the run stopped with a [Failure].
	StateFailed State = "FAILED"
)

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
