package api_test

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tiaan720/generic-agent-app/internal/agent"
	"github.com/tiaan720/generic-agent-app/internal/agent/mock"
	"github.com/tiaan720/generic-agent-app/internal/api"
	"github.com/tiaan720/generic-agent-app/internal/registry"
	"github.com/tiaan720/generic-agent-app/internal/tools"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// ─────────────────────────────────────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────────────────────────────────────

type fixture struct {
	handler  http.Handler
	server   *api.Server
	adapters map[string]*mock.Adapter
}

func newFixture(t *testing.T, opts ...api.Option) *fixture {
	t.Helper()
	catalog, err := registry.Builtin(rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	dummy, err := registry.Dummy()
	if err != nil {
		t.Fatalf("Dummy: %v", err)
	}

	f := &fixture{adapters: map[string]*mock.Adapter{}}
	newLoop := func(a registry.Agent) *agent.Loop {
		ad := &mock.Adapter{}
		f.adapters[a.ID] = ad
		loop, err := agent.New(agent.Config{
			Name:         a.ID,
			SystemPrompt: a.SystemPrompt,
			Tools:        a.Tools,
		}, ad)
		if err != nil {
			t.Fatalf("agent.New(%s): %v", a.ID, err)
		}
		return loop
	}

	runners := map[string]api.Runner{}
	for _, a := range catalog.List() {
		runners[a.ID] = newLoop(a)
	}
	opts = append([]api.Option{api.WithDummy(newLoop(dummy))}, opts...)

	f.server, err = api.New(catalog, runners, opts...)
	if err != nil {
		t.Fatalf("api.New: %v", err)
	}
	mux := http.NewServeMux()
	f.server.Register(mux)
	f.handler = api.CORS([]string{"http://localhost:5173"})(mux)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type frame struct {
	event string
	data  agent.Event
}

func parseSSE(t *testing.T, body string) []frame {
	t.Helper()
	var (
		frames []frame
		cur    frame
		seen   bool
	)
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if seen {
				frames = append(frames, cur)
			}
			cur, seen = frame{}, false
		case strings.HasPrefix(line, "event: "):
			cur.event, seen = strings.TrimPrefix(line, "event: "), true
		case strings.HasPrefix(line, "data: "):
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &cur.data); err != nil {
				t.Fatalf("frame data is not JSON: %q: %v", line, err)
			}
			seen = true
		default:
			t.Fatalf("unexpected SSE line %q", line)
		}
	}
	if seen {
		t.Fatalf("unterminated frame %+v", cur)
	}
	return frames
}

// ─────────────────────────────────────────────────────────────────────────────
// Construction
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_RequiresRunnerPerAgent(t *testing.T) {
	t.Parallel()
	catalog, _ := registry.Builtin(nil)
	if _, err := api.New(catalog, map[string]api.Runner{}); err == nil {
		t.Fatal("expected error for missing runners")
	}
	if _, err := api.New(nil, nil); err == nil {
		t.Fatal("expected error for nil catalog")
	}
}

func TestRequestTimeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	if got := f.server.RequestTimeout(); got != api.DefaultRequestTimeout {
		t.Errorf("default = %v", got)
	}
	f.server.SetRequestTimeout(5 * time.Second)
	f.server.SetRequestTimeout(0)
	if got := f.server.RequestTimeout(); got != 5*time.Second {
		t.Errorf("after set = %v, want 5s", got)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Catalog
// ─────────────────────────────────────────────────────────────────────────────

func TestListAgents(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/api/agents", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.HasPrefix(body, `{"agents":[{"id":"agent",`) {
		t.Errorf("unexpected prefix: %s", body)
	}
	if strings.Index(body, `"id":"agent"`) > strings.Index(body, `"id":"creative-agent"`) {
		t.Error("agents out of registration order")
	}
	if !strings.Contains(body, `"parameters":{"genre":"str","theme":"str"}`) {
		t.Errorf("ordered parameters missing: %s", body)
	}
	if strings.Contains(body, "dummy-agent") {
		t.Error("dummy agent must not be listed")
	}
	if !strings.HasSuffix(body, `"categories":["Mathematics","Creative Writing"]}`+"\n") {
		t.Errorf("categories missing or out of order: %s", body)
	}
}

func TestListAgents_CategoryFilter(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	tests := []struct {
		category string
		want     []string
	}{
		{"Creative%20Writing", []string{"creative-agent"}},
		{"Mathematics", []string{"agent"}},
		{"Cooking", nil},
	}
	for _, tt := range tests {
		rec := f.do(t, http.MethodGet, "/api/agents?category="+tt.category, "")
		got := decode[struct {
			Agents []registry.AgentInfo `json:"agents"`
		}](t, rec)
		if len(got.Agents) != len(tt.want) {
			t.Errorf("%s: got %d agents, want %v", tt.category, len(got.Agents), tt.want)
			continue
		}
		for i, id := range tt.want {
			if got.Agents[i].ID != id {
				t.Errorf("%s: agents[%d] = %q, want %q", tt.category, i, got.Agents[i].ID, id)
			}
		}
		if !strings.Contains(rec.Body.String(), `"agents":[`) {
			t.Errorf("%s: agents must encode as an array: %s", tt.category, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), `"categories":["Mathematics","Creative Writing"]`) {
			t.Errorf("%s: filter must not narrow the category list: %s", tt.category, rec.Body)
		}
	}
}

func TestGetAgent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/agents/creative-agent", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	info := decode[registry.AgentInfo](t, rec)
	if info.Name != "Creative Writing Assistant" || info.PrimaryColor != "#8b5cf6" || len(info.Tools) != 3 {
		t.Errorf("unexpected agent: %+v", info)
	}

	rec = f.do(t, http.MethodGet, "/api/agents/nonexistent", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"error":"Agent not found"}` {
		t.Errorf("body = %s", rec.Body)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Invoke
// ─────────────────────────────────────────────────────────────────────────────

type invokeBody struct {
	Agent     string         `json:"agent"`
	Retryable bool           `json:"retryable"`
	Text      string         `json:"text"`
	State     agent.State    `json:"state"`
	Rounds    int            `json:"rounds"`
	Failure   *agent.Failure `json:"failure"`
	Trace     []llm.Message  `json:"trace"`
}

func TestInvoke(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name          string
		steps         []mock.Step
		wantStatus    int
		wantState     agent.State
		wantKind      string
		wantText      string
		wantRetryable bool
	}{
		{
			name:       "tool then answer",
			steps:      []mock.Step{mock.Call("plus_calculator", `{"a":15,"b":27}`), mock.Answer("15 + 27 = 42")},
			wantStatus: http.StatusOK,
			wantState:  agent.StateDone,
			wantText:   "15 + 27 = 42",
		},
		{
			name:          "model unavailable",
			steps:         []mock.Step{mock.Fail(errors.New("quota exceeded"))},
			wantStatus:    http.StatusBadGateway,
			wantState:     agent.StateFailed,
			wantKind:      agent.KindModelUnavailable,
			wantRetryable: true,
		},
		{
			name:       "unknown tool twice",
			steps:      []mock.Step{mock.Call("divide", `{}`), mock.Call("divide", `{}`)},
			wantStatus: http.StatusUnprocessableEntity,
			wantState:  agent.StateFailed,
			wantKind:   "unknown_tool",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			f.adapters[registry.MathAgentID].Steps = tt.steps

			rec := f.do(t, http.MethodPost, "/api/agents/agent/invoke", `{"query":"What is 15 + 27?"}`)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body)
			}
			got := decode[invokeBody](t, rec)
			if got.Agent != "agent" || got.State != tt.wantState || got.Text != tt.wantText || got.Retryable != tt.wantRetryable {
				t.Errorf("unexpected body: %+v", got)
			}
			if tt.wantKind != "" && (got.Failure == nil || got.Failure.Kind != tt.wantKind) {
				t.Errorf("failure = %+v, want kind %q", got.Failure, tt.wantKind)
			}
			if len(got.Trace) < 2 || got.Trace[1].Content != "What is 15 + 27?" {
				t.Errorf("trace = %+v", got.Trace)
			}
		})
	}
}

func TestInvoke_Timeout(t *testing.T) {
	t.Parallel()
	f := newFixture(t, api.WithRequestTimeout(20*time.Millisecond))
	f.adapters[registry.MathAgentID].DecideFunc = func(ctx context.Context, _ []llm.Message, _ *tools.Set) (agent.Decision, error) {
		<-ctx.Done()
		return agent.Decision{}, ctx.Err()
	}

	rec := f.do(t, http.MethodPost, "/api/agents/agent/invoke", `{"query":"slow"}`)
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d, want 504", rec.Code)
	}
	got := decode[invokeBody](t, rec)
	if got.Failure == nil || got.Failure.Kind != agent.KindTimeout || !got.Retryable {
		t.Errorf("unexpected body: %+v", got)
	}
}

func TestInvoke_RejectsBadRequests(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"unknown agent", "/api/agents/nope/invoke", `{"query":"hi"}`, http.StatusNotFound, "Agent not found"},
		{"missing query", "/api/agents/agent/invoke", `{}`, http.StatusBadRequest, "query is required"},
		{"empty body", "/api/agents/agent/invoke", ``, http.StatusBadRequest, "query is required"},
		{"query too long", "/api/agents/agent/invoke", `{"query":"` + strings.Repeat("x", 4001) + `"}`, http.StatusBadRequest, "query must be at most 4000 characters"},
		{"malformed", "/api/agents/agent/invoke", `{"query":`, http.StatusBadRequest, "invalid JSON body"},
		{"trailing garbage", "/api/agents/agent/invoke", `{"query":"x"} trailing-garbage`, http.StatusBadRequest, "invalid JSON body"},
		{"second object", "/api/agents/agent/invoke", `{"query":"x"}{"query":"y"}`, http.StatusBadRequest, "invalid JSON body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			got := decode[struct {
				Error string `json:"error"`
			}](t, rec)
			if !strings.Contains(got.Error, tt.wantError) {
				t.Errorf("error = %q, want %q", got.Error, tt.wantError)
			}
			if n := len(f.adapters[registry.MathAgentID].Calls()); n != 0 {
				t.Errorf("adapter called %d times for a rejected request", n)
			}
		})
	}
}

func TestInvoke_QueryAtLimitAccepted(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.adapters[registry.MathAgentID].Steps = []mock.Step{mock.Answer("ok")}
	query := strings.Repeat("é", 4000)
	rec := f.do(t, http.MethodPost, "/api/agents/agent/invoke", `{"query":"`+query+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Streaming
// ─────────────────────────────────────────────────────────────────────────────

func TestDummyStream_DefaultQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ad := f.adapters[registry.DummyAgentID]
	ad.Steps = []mock.Step{mock.Call("plus_calculator", `{"a":1,"b":1}`), mock.Answer("1 + 1 = 2")}

	rec := f.do(t, http.MethodPost, "/api/dummy-agent/stream", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	frames := parseSSE(t, rec.Body.String())
	want := []agent.EventType{
		agent.EventRunStarted,
		agent.EventModelRequested,
		agent.EventToolStarted,
		agent.EventToolCompleted,
		agent.EventModelRequested,
		agent.EventDone,
	}
	if len(frames) != len(want) {
		t.Fatalf("got %d frames, want %d: %+v", len(frames), len(want), frames)
	}
	for i, fr := range frames {
		if fr.event != string(want[i]) || fr.data.Type != want[i] {
			t.Errorf("frame[%d] = %s/%s, want %s", i, fr.event, fr.data.Type, want[i])
		}
	}
	if frames[3].data.Output != "2" {
		t.Errorf("tool output = %q, want 2", frames[3].data.Output)
	}
	if last := frames[len(frames)-1].data; last.Text != "1 + 1 = 2" || last.Agent != registry.DummyAgentID {
		t.Errorf("terminal event = %+v", last)
	}

	history := ad.Calls()[0].History
	if history[1].Content != registry.DefaultDummyQuery {
		t.Errorf("query = %q, want the default", history[1].Content)
	}
}

func TestDummyStream_CustomQuery(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ad := f.adapters[registry.DummyAgentID]
	ad.Steps = []mock.Step{mock.Answer("5")}

	rec := f.do(t, http.MethodPost, "/api/dummy-agent/stream", `{"query":"What is 2 + 3?"}`)
	frames := parseSSE(t, rec.Body.String())
	if frames[len(frames)-1].event != "done" {
		t.Fatalf("last frame = %+v", frames[len(frames)-1])
	}
	if got := ad.Calls()[0].History[1].Content; got != "What is 2 + 3?" {
		t.Errorf("query = %q", got)
	}
}

func TestAgentStream_EndsWithFailed(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.adapters[registry.CreativeAgentID].Steps = []mock.Step{mock.Fail(errors.New("overloaded"))}

	rec := f.do(t, http.MethodPost, "/api/agents/creative-agent/stream", `{"query":"Give me a sci-fi idea"}`)
	frames := parseSSE(t, rec.Body.String())
	last := frames[len(frames)-1]
	if last.event != "failed" || last.data.Failure == nil || last.data.Failure.Kind != agent.KindModelUnavailable {
		t.Fatalf("last frame = %+v", last)
	}
	for _, fr := range frames[:len(frames)-1] {
		if fr.data.Type.Terminal() {
			t.Errorf("terminal event before the end: %+v", fr)
		}
	}
}

// silentRunner emits only run_started and returns res.
type silentRunner struct{ res *agent.Result }

func (r silentRunner) RunObserved(_ context.Context, _ string, obs agent.Observer) *agent.Result {
	if obs != nil {
		obs(agent.Event{Type: agent.EventRunStarted, Agent: "agent", State: agent.StateAwaitingModel})
	}
	return r.res
}

func TestAgentStream_SynthesizesTerminalEvent(t *testing.T) {
	t.Parallel()
	catalog, err := registry.Builtin(rand.New(rand.NewPCG(1, 1)))
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	tests := []struct {
		name      string
		res       *agent.Result
		wantEvent agent.EventType
		wantKind  string
		wantText  string
	}{
		{"done", &agent.Result{State: agent.StateDone, Text: "4", Rounds: 1}, agent.EventDone, "", "4"},
		{"failed", &agent.Result{State: agent.StateFailed, Failure: &agent.Failure{Kind: agent.KindTimeout, Message: "slow"}}, agent.EventFailed, agent.KindTimeout, ""},
		{"not terminal", &agent.Result{State: agent.StateExecutingTool, Rounds: 2}, agent.EventFailed, "internal", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			runners := map[string]api.Runner{}
			for _, a := range catalog.List() {
				runners[a.ID] = silentRunner{res: tt.res}
			}
			server, err := api.New(catalog, runners)
			if err != nil {
				t.Fatalf("api.New: %v", err)
			}
			mux := http.NewServeMux()
			server.Register(mux)
			req := httptest.NewRequest(http.MethodPost, "/api/agents/agent/stream", strings.NewReader(`{"query":"2+2"}`))
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			frames := parseSSE(t, rec.Body.String())
			if len(frames) != 2 {
				t.Fatalf("got %d frames, want 2: %+v", len(frames), frames)
			}
			last := frames[1]
			if last.event != string(tt.wantEvent) || !last.data.State.Terminal() {
				t.Fatalf("last frame = %s/%s", last.event, last.data.State)
			}
			if last.data.Text != tt.wantText || last.data.Agent != "agent" {
				t.Errorf("last frame = %+v", last.data)
			}
			if tt.wantKind == "" && last.data.Failure != nil {
				t.Errorf("unexpected failure %+v", last.data.Failure)
			}
			if tt.wantKind != "" && (last.data.Failure == nil || last.data.Failure.Kind != tt.wantKind) {
				t.Errorf("failure = %+v, want kind %q", last.data.Failure, tt.wantKind)
			}
		})
	}
}

func TestAgentStream_UnknownAgent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rec := f.do(t, http.MethodPost, "/api/agents/ghost/stream", `{"query":"hi"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Frontend and CORS
// ─────────────────────────────────────────────────────────────────────────────

func TestFrontend_NotBuilt(t *testing.T) {
	t.Parallel()
	f := newFixture(t, api.WithFrontendDir(filepath.Join(t.TempDir(), "dist")))
	for _, path := range []string{"/app/", "/app/assets/index.js"} {
		rec := f.do(t, http.MethodGet, path, "")
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
		if rec.Body.String() != "Frontend not built. Run 'npm run build' in the frontend directory." {
			t.Errorf("%s: body = %q", path, rec.Body)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("%s: Content-Type = %q", path, ct)
		}
	}
}

func TestFrontend_Built(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>agents</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "assets"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	f := newFixture(t, api.WithFrontendDir(dir))

	rec := f.do(t, http.MethodGet, "/app/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>agents</h1>") {
		t.Errorf("/app/: %d %q", rec.Code, rec.Body)
	}
	rec = f.do(t, http.MethodGet, "/app/assets/app.js", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "console.log(1)" {
		t.Errorf("/app/assets/app.js: %d %q", rec.Code, rec.Body)
	}
}

func TestRootRedirectsToApp(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	rec := f.do(t, http.MethodGet, "/", "")
	if rec.Code != http.StatusTemporaryRedirect || rec.Header().Get("Location") != "/app/" {
		t.Errorf("got %d Location=%q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/agents/agent/invoke", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", "POST")
		req.Header.Set("Access-Control-Request-Headers", "content-type")
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("allowed preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Errorf("Allow-Origin = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Headers"); got != "content-type" {
		t.Errorf("Allow-Headers = %q", got)
	}

	rec = preflight("https://evil.example")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got Allow-Origin %q", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/agents", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	simple := httptest.NewRecorder()
	f.handler.ServeHTTP(simple, req)
	if simple.Code != http.StatusOK || simple.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("simple request: %d %v", simple.Code, simple.Header())
	}
}

func TestCORS_Wildcard(t *testing.T) {
	t.Parallel()
	h := api.CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot || rec.Header().Get("Access-Control-Allow-Origin") != "https://anywhere.example" {
		t.Errorf("got %d %v", rec.Code, rec.Header())
	}
}
