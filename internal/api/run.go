package api

import (
	"context"
	"net/http"
	"time"

	"github.com/tiaan720/generic-agent-app/internal/agent"
	"github.com/tiaan720/generic-agent-app/internal/observe"
	"github.com/tiaan720/generic-agent-app/internal/registry"
	"github.com/tiaan720/generic-agent-app/internal/tools"
)

// statusClientClosedRequest reports a run abandoned by the client.
const statusClientClosedRequest = 499

// kindInternal is the failure kind of a run that returned without reaching
// a terminal state.
const kindInternal = "internal"

// invokeResponse is the body of POST /api/agents/{agent_id}/invoke.
type invokeResponse struct {
	Agent     string `json:"agent"`
	Retryable bool   `json:"retryable"`
	*agent.Result
}

// statusFor maps a finished run onto an HTTP status.
func statusFor(res *agent.Result) int {
	if res.Failure == nil {
		return http.StatusOK
	}
	switch res.Failure.Kind {
	case agent.KindModelUnavailable:
		return http.StatusBadGateway
	case agent.KindTimeout:
		return http.StatusGatewayTimeout
	case agent.KindCancelled:
		return statusClientClosedRequest
	case agent.KindRoundLimitExceeded, tools.KindUnknownTool, tools.KindInvalidArguments, tools.KindToolFailed:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) runner(w http.ResponseWriter, r *http.Request) (string, Runner, bool) {
	id := r.PathValue("agent_id")
	if _, err := s.catalog.Lookup(id); err != nil {
		writeError(w, http.StatusNotFound, "Agent not found")
		return "", nil, false
	}
	return id, s.runners[id], true
}

func (s *Server) invokeAgent(w http.ResponseWriter, r *http.Request) {
	id, run, ok := s.runner(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeRun(w, r, "")
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout())
	defer cancel()
	res := run.RunObserved(ctx, req.Query, nil)

	resp := invokeResponse{Agent: id, Result: res}
	if res.Failure != nil {
		resp.Retryable = res.Failure.Retryable()
	}
	writeJSON(w, statusFor(res), resp)
}

func (s *Server) streamAgent(w http.ResponseWriter, r *http.Request) {
	id, run, ok := s.runner(w, r)
	if !ok {
		return
	}
	req, ok := s.decodeRun(w, r, "")
	if !ok {
		return
	}
	s.stream(w, r, id, run, req.Query)
}

func (s *Server) streamDummy(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRun(w, r, registry.DefaultDummyQuery)
	if !ok {
		return
	}
	s.stream(w, r, registry.DummyAgentID, s.dummy, req.Query)
}

// stream runs query and writes every event as one SSE frame. A failed
// write cancels the run. The stream always ends with a done or failed
// frame, built from the result when the runner did not emit one.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, id string, run Runner, query string) {
	ctx, cancel := context.WithTimeout(r.Context(), s.RequestTimeout())
	defer cancel()

	sse := newSSEWriter(w)
	log := observe.Logger(ctx)
	var ended bool
	res := run.RunObserved(ctx, query, func(ev agent.Event) {
		if sse.err != nil || ended {
			return
		}
		ended = ev.State.Terminal()
		if err := sse.send(string(ev.Type), ev); err != nil {
			log.Debug("api: stream write failed, cancelling run", "agent", id, "err", err)
			cancel()
		}
	})
	if !ended && sse.err == nil {
		ev := terminalEvent(id, res)
		log.Warn("api: run returned without a terminal event", "agent", id, "state", res.State)
		_ = sse.send(string(ev.Type), ev)
	}
	log.Debug("api: stream finished", "agent", id, "state", res.State, "rounds", res.Rounds)
}

// terminalEvent builds the closing event of a stream from res. A result
// that is not in a terminal state is reported as an internal failure.
func terminalEvent(id string, res *agent.Result) agent.Event {
	ev := agent.Event{
		Type:    agent.EventFailed,
		Agent:   id,
		State:   agent.StateFailed,
		Round:   res.Rounds,
		Failure: res.Failure,
		Time:    time.Now().UTC(),
	}
	switch {
	case res.State == agent.StateDone:
		ev.Type, ev.State, ev.Text = agent.EventDone, agent.StateDone, res.Text
	case !res.State.Terminal() || ev.Failure == nil:
		ev.Failure = &agent.Failure{Kind: kindInternal, Message: "run ended in state " + string(res.State)}
	}
	return ev
}
