// Package app wires the agent server's subsystems into a running
// application.
//
// The App struct owns the full lifecycle: New builds the model backends,
// agent loops, and HTTP surface; Run serves until the context is cancelled;
// Shutdown drains in-flight requests.
//
// For testing, register mock LLM factories on the [config.Registry] passed to
// New and drive [App.Handler] with net/http/httptest.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/tiaan720/generic-agent-app/internal/agent"
	"github.com/tiaan720/generic-agent-app/internal/api"
	"github.com/tiaan720/generic-agent-app/internal/config"
	"github.com/tiaan720/generic-agent-app/internal/health"
	"github.com/tiaan720/generic-agent-app/internal/mcpserver"
	"github.com/tiaan720/generic-agent-app/internal/observe"
	"github.com/tiaan720/generic-agent-app/internal/registry"
	"github.com/tiaan720/generic-agent-app/internal/resilience"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownGrace     = 15 * time.Second
)

// App owns all subsystem lifetimes of the agent server.
type App struct {
	cfg     *config.Config
	version string
	level   *slog.LevelVar
	metrics *observe.Metrics
	scrape  http.Handler
	rng     *rand.Rand

	watchPath     string
	watchInterval time.Duration
	watcher       *config.Watcher

	// Subsystems, initialised in New.
	llm     *resilience.LLMFallback
	catalog *registry.Registry
	loops   map[string]*agent.Loop
	dummy   *agent.Loop
	api     *api.Server
	mcp     *mcpserver.Handler
	handler http.Handler
	server  *http.Server

	stopOnce sync.Once
}

// Option is a functional option for New.
type Option func(*App)

// WithLevelVar lets hot reload change the level of the caller's logger.
func WithLevelVar(lv *slog.LevelVar) Option {
	return func(a *App) { a.level = lv }
}

// WithMetrics records to m instead of [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics instead of the default Prometheus
// registry. Pass [observe.Telemetry.Handler].
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.scrape = h }
}

// WithRand seeds the creative tools. Tests use it for reproducible output.
func WithRand(r *rand.Rand) Option {
	return func(a *App) { a.rng = r }
}

// WithVersion sets the version reported by the MCP servers.
func WithVersion(v string) Option {
	return func(a *App) { a.version = v }
}

// WithConfigWatch polls path for changes and applies hot-reloadable settings.
// A zero interval selects [config.DefaultWatchInterval].
func WithConfigWatch(path string, interval time.Duration) Option {
	return func(a *App) {
		a.watchPath = path
		a.watchInterval = interval
	}
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App from cfg. LLM backends are built through reg, so
// providers.llm and every entry of providers.fallbacks must name a
// registered factory.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{
		cfg:     cfg,
		version: mcpserver.DefaultVersion,
	}
	for _, o := range opts {
		o(a)
	}
	if a.level == nil {
		a.level = new(slog.LevelVar)
		a.level.Set(cfg.Server.LogLevel.Slog())
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.scrape == nil {
		a.scrape = promhttp.Handler()
	}
	if a.rng == nil {
		a.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	// ── 1. Model backends ────────────────────────────────────────────────
	if err := a.initLLM(reg); err != nil {
		return nil, fmt.Errorf("app: init llm: %w", err)
	}

	// ── 2. Agents ────────────────────────────────────────────────────────
	if err := a.initAgents(); err != nil {
		return nil, fmt.Errorf("app: init agents: %w", err)
	}

	// ── 3. HTTP surface ──────────────────────────────────────────────────
	if err := a.initHTTP(); err != nil {
		return nil, fmt.Errorf("app: init http: %w", err)
	}

	// ── 4. Hot reload ────────────────────────────────────────────────────
	if a.watchPath != "" {
		var wopts []config.WatcherOption
		if a.watchInterval > 0 {
			wopts = append(wopts, config.WithInterval(a.watchInterval))
		}
		w, err := config.NewWatcher(a.watchPath, a.ApplyConfig, wopts...)
		if err != nil {
			return nil, fmt.Errorf("app: init watcher: %w", err)
		}
		a.watcher = w
	}

	slog.InfoContext(ctx, "app: initialised",
		"agents", a.catalog.Len(),
		"llm", cfg.Providers.LLM.Name,
		"fallbacks", len(cfg.Providers.Fallbacks),
		"mcp", cfg.MCP.Enabled,
	)
	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

// initLLM builds the primary backend and its fallbacks behind per-backend
// circuit breakers.
func (a *App) initLLM(reg *config.Registry) error {
	primary, err := reg.CreateLLM(a.cfg.Providers.LLM)
	if err != nil {
		return err
	}

	r := a.cfg.Resilience
	fb := resilience.NewLLMFallback(primary, a.cfg.Providers.LLM.Name, resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  r.MaxFailures,
			ResetTimeout: r.ResetTimeout,
			HalfOpenMax:  r.HalfOpenMax,
			OnStateChange: func(name string, from, to resilience.State) {
				a.metrics.RecordCircuitTransition(context.Background(), name, from.String(), to.String())
				slog.Warn("app: llm circuit changed state", "provider", name, "from", from.String(), "to", to.String())
			},
		},
	})
	for i, entry := range a.cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return fmt.Errorf("fallback %d: %w", i, err)
		}
		fb.AddFallback(entry.Name, p)
		slog.Info("app: llm fallback registered", "name", entry.Name, "model", entry.Model)
	}
	a.llm = fb
	return nil
}

// initAgents builds the catalog and one loop per agent, plus the demo loop.
func (a *App) initAgents() error {
	catalog, err := registry.Builtin(a.rng)
	if err != nil {
		return err
	}
	a.catalog = catalog

	a.loops = make(map[string]*agent.Loop, catalog.Len())
	for _, ag := range catalog.List() {
		l, err := a.buildLoop(ag)
		if err != nil {
			return fmt.Errorf("agent %q: %w", ag.ID, err)
		}
		a.loops[ag.ID] = l
		slog.Info("app: agent loaded", "id", ag.ID, "tools", ag.Tools.Len())
	}

	dummy, err := registry.Dummy()
	if err != nil {
		return err
	}
	if a.dummy, err = a.buildLoop(dummy); err != nil {
		return fmt.Errorf("agent %q: %w", dummy.ID, err)
	}
	return nil
}

// buildLoop wraps the shared backend in an adapter carrying ag's sampling
// settings.
func (a *App) buildLoop(ag registry.Agent) (*agent.Loop, error) {
	adapter, err := agent.NewLLMAdapter(a.llm,
		agent.WithTemperature(ag.Temperature),
		agent.WithMaxTokens(a.cfg.Agent.MaxTokens),
		agent.WithProviderName(a.cfg.Providers.LLM.Name),
		agent.WithAdapterMetrics(a.metrics),
	)
	if err != nil {
		return nil, err
	}
	return agent.New(agent.Config{
		Name:           ag.ID,
		SystemPrompt:   ag.SystemPrompt,
		Temperature:    ag.Temperature,
		MaxRounds:      a.cfg.Agent.MaxRounds,
		MaxToolRetries: toolRetries(a.cfg.Agent.MaxToolRetries),
		Tools:          ag.Tools,
	}, adapter, agent.WithMetrics(a.metrics))
}

// toolRetries maps the config value to [agent.Config.MaxToolRetries], where
// zero selects the default and a negative value disables retries.
func toolRetries(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// initHTTP mounts every route and wraps the mux in CORS and telemetry.
func (a *App) initHTTP() error {
	runners := make(map[string]api.Runner, len(a.loops))
	for id, l := range a.loops {
		runners[id] = l
	}
	srv, err := api.New(a.catalog, runners,
		api.WithDummy(a.dummy),
		api.WithFrontendDir(a.cfg.Server.FrontendDir),
		api.WithRequestTimeout(a.cfg.Server.RequestTimeout),
	)
	if err != nil {
		return err
	}
	a.api = srv

	mux := http.NewServeMux()
	srv.Register(mux)

	if a.cfg.MCP.Enabled {
		a.mcp = mcpserver.New(a.catalog,
			mcpserver.WithVersion(a.version),
			mcpserver.WithMetrics(a.metrics),
		)
		a.mcp.Register(mux)
	}

	health.New(
		health.NonEmpty("agents", a.catalog),
		health.Circuit("llm", a.llm),
	).Register(mux)
	mux.Handle("GET /metrics", a.scrape)

	a.handler = api.CORS(a.cfg.Server.CORSOrigins)(observe.Middleware(a.metrics)(mux))
	a.server = &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the fully wrapped HTTP handler.
func (a *App) Handler() http.Handler { return a.handler }

// Catalog returns the agent registry.
func (a *App) Catalog() *registry.Registry { return a.catalog }

// RequestTimeout returns the per-run timeout currently applied by the API.
func (a *App) RequestTimeout() time.Duration { return a.api.RequestTimeout() }

// LLMStatus reports the breaker state of every model backend.
func (a *App) LLMStatus() []resilience.EntryStatus { return a.llm.Status() }

// ─── Hot reload ──────────────────────────────────────────────────────────────

// ApplyConfig applies the hot-reloadable differences between old and new
// and logs the keys that need a restart. It is the watcher's change callback.
func (a *App) ApplyConfig(old, new *config.Config) {
	d := config.Diff(old, new)
	if d.Empty() {
		return
	}
	if d.LogLevelChanged {
		a.level.Set(d.NewLogLevel.Slog())
		slog.Info("app: log level changed", "level", d.NewLogLevel)
	}
	if d.RequestTimeoutChanged {
		a.api.SetRequestTimeout(d.NewRequestTimeout)
		slog.Info("app: request timeout changed", "timeout", d.NewRequestTimeout)
	}
	if len(d.RestartRequired) > 0 {
		slog.Warn("app: configuration changes take effect after restart", "keys", d.RestartRequired)
	}
}

// ReloadConfig re-reads the watched config file now instead of waiting for
// the next poll. It returns [config.ErrUnchanged] when the file holds nothing
// new and an error when the app was built without [WithConfigWatch].
func (a *App) ReloadConfig() error {
	if a.watcher == nil {
		return errors.New("app: config watch is disabled")
	}
	return a.watcher.Check()
}

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run listens on server.listen_addr and serves until ctx is cancelled. See
// [App.Serve].
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen %s: %w", a.cfg.Server.ListenAddr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve serves HTTP on ln alongside the config watcher and blocks until ctx
// is cancelled or the server fails. When ctx is done, Serve drains
// in-flight requests and returns ctx's error.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = a.server.ServeTLS(ln, tls.CertFile, tls.KeyFile)
		} else {
			err = a.server.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("app: serve: %w", err)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})
	if a.watcher != nil {
		g.Go(func() error { return a.watcher.Run(gctx) })
	}

	slog.Info("app: serving", "addr", ln.Addr().String(), "tls", a.cfg.Server.TLS != nil)
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown stops accepting requests and waits for in-flight ones until ctx
// expires. It is safe to call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("app: shutting down")
		if err := a.server.Shutdown(ctx); err != nil {
			slog.Warn("app: shutdown deadline exceeded", "err", err)
			shutdownErr = err
			return
		}
		for _, s := range a.llm.Status() {
			slog.Debug("app: llm backend state", "name", s.Name, "state", s.State)
		}
		slog.Info("app: shutdown complete")
	})
	return shutdownErr
}
