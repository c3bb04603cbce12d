// Package mcpserver exposes each agent's tools as a Model Context Protocol
// server over streamable HTTP, mounted at /mcp/{agent_id}.
//
// Tool calls go through the same [tools.Set.Invoke] path the agent loop
// uses, so an MCP client sees identical validation and results. Recoverable
// tool errors are returned as tool results with IsError set, carrying the
// same feedback text the model would receive.
package mcpserver

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tiaan720/generic-agent-app/internal/observe"
	"github.com/tiaan720/generic-agent-app/internal/registry"
	"github.com/tiaan720/generic-agent-app/internal/tools"
)

// DefaultVersion is reported to clients when no version is configured.
const DefaultVersion = "dev"

// Handler routes /mcp/{agent_id} to the MCP server of that agent.
type Handler struct {
	version string
	metrics *observe.Metrics
	servers map[string]*mcp.Server
	stream  *mcp.StreamableHTTPHandler
}

// Option is a functional option for [New].
type Option func(*Handler)

// WithVersion sets the server version reported during initialization.
func WithVersion(v string) Option {
	return func(h *Handler) { h.version = v }
}

// WithMetrics records tool calls and durations to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

// New builds one MCP server per agent in catalog.
func New(catalog *registry.Registry, opts ...Option) *Handler {
	h := &Handler{version: DefaultVersion, servers: make(map[string]*mcp.Server)}
	for _, o := range opts {
		o(h)
	}
	for _, a := range catalog.List() {
		h.servers[a.ID] = h.NewServer(a)
	}
	h.stream = mcp.NewStreamableHTTPHandler(func(r *http.Request) *mcp.Server {
		return h.servers[r.PathValue("agent_id")]
	}, nil)
	return h
}

// NewServer returns an MCP server offering every tool of a.
func (h *Handler) NewServer(a registry.Agent) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: a.ID, Title: a.Name, Version: h.version}, nil)
	for _, t := range a.Tools.Tools() {
		srv.AddTool(&mcp.Tool{
			Name:        t.Name(),
			Description: t.Definition.Description,
			InputSchema: t.Definition.Parameters,
		}, h.handler(a.ID, a.Tools, t.Name()))
	}
	return srv
}

func (h *Handler) handler(agentID string, set *tools.Set, name string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		out, err := set.Invoke(ctx, name, string(req.Params.Arguments))
		status := "ok"
		if err != nil {
			status = "error"
			var rec tools.Recoverable
			if errors.As(err, &rec) {
				status = rec.Kind()
				out = rec.Feedback()
			} else {
				out = err.Error()
			}
			observe.Logger(ctx).Debug("mcpserver: tool call failed", "agent", agentID, "tool", name, "err", err)
		}
		if h.metrics != nil {
			h.metrics.RecordToolCall(ctx, name, status, observe.TransportMCP)
			h.metrics.ToolExecutionDuration.Record(ctx, time.Since(start).Seconds(),
				metric.WithAttributes(attribute.String("tool", name), attribute.String("transport", observe.TransportMCP)),
			)
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: out}},
			IsError: err != nil,
		}, nil
	}
}

// Agents returns the sorted IDs of the agents that have a server.
func (h *Handler) Agents() []string {
	return slices.Sorted(maps.Keys(h.servers))
}

// ServeHTTP answers 404 for unknown agents and otherwise hands the request
// to the streamable HTTP transport.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.servers[r.PathValue("agent_id")]; !ok {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Agent not found"}` + "\n"))
		return
	}
	h.stream.ServeHTTP(w, r)
}

// Register mounts the handler on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.Handle("/mcp/{agent_id}", h)
}
