package agent

import "time"

// EventType identifies a loop state transition.
type EventType string

const (
	// EventRunStarted is emitted once before the first model round.
	EventRunStarted EventType = "run_started"

	// EventModelRequested is emitted when the loop asks the model to decide.
	EventModelRequested EventType = "model_requested"

	// EventToolStarted is emitted when the loop begins executing a tool.
	EventToolStarted EventType = "tool_started"

	// EventToolCompleted is emitted when a tool returns a result.
	EventToolCompleted EventType = "tool_completed"

	// EventToolFailed is emitted when a tool invocation fails.
	EventToolFailed EventType = "tool_failed"

	// EventDone is the terminal event of a successful run.
	EventDone EventType = "done"

	// EventFailed is the terminal event of a failed run.
	EventFailed EventType = "failed"
)

// Terminal reports whether t ends the event stream of a run.
func (t EventType) Terminal() bool {
	return t == EventDone || t == EventFailed
}

// Event describes one state transition of a run.
type Event struct {
	Type      EventType `json:"type"`
	Agent     string    `json:"agent"`
	State     State     `json:"state"`
	Round     int       `json:"round"`
	Tool      string    `json:"tool,omitempty"`
	Arguments string    `json:"arguments,omitempty"`
	Output    string    `json:"output,omitempty"`
	Text      string    `json:"text,omitempty"`
	Failure   *Failure  `json:"failure,omitempty"`
	Time      time.Time `json:"time"`
}

// Observer receives events synchronously from the goroutine running the
// loop. A slow observer delays the run.
type Observer func(Event)
