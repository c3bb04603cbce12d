// Package api serves the agent catalog, agent runs, and the built frontend
// over HTTP.
//
// Routes:
//
//	GET  /api/agents                     catalog and categories, optional ?category= filter
//	GET  /api/agents/{agent_id}          one agent, 404 when unknown
//	POST /api/agents/{agent_id}/invoke   run to completion, JSON result
//	POST /api/agents/{agent_id}/stream   run with server-sent events
//	POST /api/dummy-agent/stream         smoke-test agent with server-sent events
//	GET  /app/...                        static frontend
//	GET  /                               redirect to /app/
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tiaan720/generic-agent-app/internal/agent"
	"github.com/tiaan720/generic-agent-app/internal/registry"
)

// DefaultRequestTimeout bounds a run when no timeout is configured.
const DefaultRequestTimeout = 60 * time.Second

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Runner executes one agent request. [*agent.Loop] implements it.
type Runner interface {
	RunObserved(ctx context.Context, query string, obs agent.Observer) *agent.Result
}

var _ Runner = (*agent.Loop)(nil)

// Server holds the HTTP handlers. Create it with [New].
type Server struct {
	catalog     *registry.Registry
	runners     map[string]Runner
	dummy       Runner
	frontendDir string
	timeout     atomic.Int64
	validate    *validator.Validate
}

// Option is a functional option for [New].
type Option func(*Server)

// WithDummy enables POST /api/dummy-agent/stream backed by r.
func WithDummy(r Runner) Option {
	return func(s *Server) { s.dummy = r }
}

// WithFrontendDir serves the built frontend from dir under /app/.
func WithFrontendDir(dir string) Option {
	return func(s *Server) { s.frontendDir = dir }
}

// WithRequestTimeout sets the initial per-run timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.SetRequestTimeout(d) }
}

// New returns a Server for catalog. runners must hold a [Runner] for every
// agent in the catalog, keyed by agent ID.
func New(catalog *registry.Registry, runners map[string]Runner, opts ...Option) (*Server, error) {
	if catalog == nil {
		return nil, errors.New("api: catalog must not be nil")
	}
	var errs []error
	for _, a := range catalog.List() {
		if runners[a.ID] == nil {
			errs = append(errs, fmt.Errorf("api: no runner for agent %q", a.ID))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s := &Server{
		catalog:  catalog,
		runners:  runners,
		validate: newValidator(),
	}
	s.timeout.Store(int64(DefaultRequestTimeout))
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// SetRequestTimeout changes the per-run timeout for subsequent requests.
// Non-positive values are ignored.
func (s *Server) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		s.timeout.Store(int64(d))
	}
}

// RequestTimeout returns the current per-run timeout.
func (s *Server) RequestTimeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// Register mounts every route on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/agents", s.listAgents)
	mux.HandleFunc("GET /api/agents/{agent_id}", s.getAgent)
	mux.HandleFunc("POST /api/agents/{agent_id}/invoke", s.invokeAgent)
	mux.HandleFunc("POST /api/agents/{agent_id}/stream", s.streamAgent)
	if s.dummy != nil {
		mux.HandleFunc("POST /api/dummy-agent/stream", s.streamDummy)
	}
	mux.Handle("GET /app/", http.StripPrefix("/app", frontend(s.frontendDir)))
	mux.Handle("GET /{$}", http.RedirectHandler("/app/", http.StatusTemporaryRedirect))
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
