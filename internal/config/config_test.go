package config_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/tiaan720/generic-agent-app/internal/config"
	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
	llmmock "github.com/tiaan720/generic-agent-app/pkg/provider/llm/mock"
)

// ── helpers ──────────────────────────────────────────────────────────────────

const sampleYAML = `
server:
  listen_addr: ":9090"
  log_level: debug
  request_timeout: 30s
  frontend_dir: web/dist
  cors_origins:
    - https://agents.example.com

providers:
  llm:
    name: gemini
    model: gemini-2.5-flash
    api_key: test-key
  fallbacks:
    - name: openai
      model: gpt-4o-mini
      api_key: sk-test
    - name: ollama
      model: qwen2.5
      base_url: http://localhost:11434

agent:
  max_rounds: 6
  max_tool_retries: 2

resilience:
  max_failures: 4
  reset_timeout: 10s

mcp:
  enabled: false
`

func load(t *testing.T, yaml string) (*config.Config, error) {
	t.Helper()
	return config.LoadFromReader(strings.NewReader(yaml))
}

// ── loading ──────────────────────────────────────────────────────────────────

func TestLoadFromReader_FullConfig(t *testing.T) {
	t.Parallel()
	cfg, err := load(t, sampleYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" || cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.RequestTimeout != 30*time.Second {
		t.Errorf("request_timeout = %v, want 30s", cfg.Server.RequestTimeout)
	}
	if !slices.Equal(cfg.Server.CORSOrigins, []string{"https://agents.example.com"}) {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Providers.LLM.Model != "gemini-2.5-flash" || len(cfg.Providers.Fallbacks) != 2 {
		t.Errorf("providers = %+v", cfg.Providers)
	}
	if cfg.Agent.MaxRounds != 6 || cfg.Agent.MaxToolRetries != 2 {
		t.Errorf("agent = %+v", cfg.Agent)
	}
	if cfg.Resilience.MaxFailures != 4 || cfg.Resilience.ResetTimeout != 10*time.Second {
		t.Errorf("resilience = %+v", cfg.Resilience)
	}
	if cfg.MCP.Enabled {
		t.Error("mcp.enabled should be false")
	}
}

func TestLoadFromReader_OmittedKeysKeepDefaults(t *testing.T) {
	t.Parallel()
	cfg, err := load(t, "providers:\n  llm:\n    api_key: k\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	def := config.Default()
	if cfg.Server.ListenAddr != def.Server.ListenAddr ||
		cfg.Server.RequestTimeout != config.DefaultRequestTimeout ||
		cfg.Providers.LLM.Name != "gemini" ||
		cfg.Providers.LLM.Model != "gemini-2.5-pro" ||
		cfg.Agent.MaxRounds != config.DefaultMaxRounds ||
		cfg.Agent.MaxToolRetries != config.DefaultMaxToolRetries ||
		!cfg.MCP.Enabled {
		t.Errorf("defaults not preserved: %+v", cfg)
	}
	if !slices.Equal(cfg.Server.CORSOrigins, config.DefaultCORSOrigins) {
		t.Errorf("cors_origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFromReader_UnknownKeyRejected(t *testing.T) {
	t.Parallel()
	_, err := load(t, "server:\n  listen: \":1\"\n")
	if err == nil || !strings.Contains(err.Error(), "listen") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}

func TestDefault_DoesNotShareSlices(t *testing.T) {
	t.Parallel()
	a := config.Default()
	a.Server.CORSOrigins[0] = "mutated"
	if config.Default().Server.CORSOrigins[0] == "mutated" {
		t.Fatal("Default() shares the CORS slice")
	}
}

// ── validation ───────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr []string
	}{
		{
			name:   "valid",
			mutate: func(*config.Config) {},
		},
		{
			name:    "bad log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "bananas" },
			wantErr: []string{`server.log_level "bananas"`},
		},
		{
			name:    "zero timeout",
			mutate:  func(c *config.Config) { c.Server.RequestTimeout = 0 },
			wantErr: []string{"server.request_timeout must be positive"},
		},
		{
			name:    "bad origin",
			mutate:  func(c *config.Config) { c.Server.CORSOrigins = []string{"*", "localhost"} },
			wantErr: []string{`server.cors_origins[1] "localhost"`},
		},
		{
			name:    "missing model and name",
			mutate:  func(c *config.Config) { c.Providers.LLM = config.ProviderEntry{} },
			wantErr: []string{"providers.llm.name is required", "providers.llm.model is required"},
		},
		{
			name: "fallback without key",
			mutate: func(c *config.Config) {
				c.Providers.Fallbacks = []config.ProviderEntry{{Name: "openai", Model: "gpt-4o"}}
			},
			wantErr: []string{"providers.fallbacks[0]: api key missing"},
		},
		{
			name: "keyless fallback",
			mutate: func(c *config.Config) {
				c.Providers.Fallbacks = []config.ProviderEntry{{Name: "ollama", Model: "qwen2.5"}}
			},
		},
		{
			name: "agent bounds",
			mutate: func(c *config.Config) {
				c.Agent.MaxRounds = 0
				c.Agent.MaxToolRetries = -1
			},
			wantErr: []string{"agent.max_rounds must be positive", "agent.max_tool_retries must not be negative"},
		},
		{
			name:    "half configured tls",
			mutate:  func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "cert.pem"} },
			wantErr: []string{"server.tls requires both"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Default()
			cfg.Providers.LLM.APIKey = "test-key"
			tt.mutate(cfg)

			err := config.Validate(cfg)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			for _, want := range tt.wantErr {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not contain %q", err, want)
				}
			}
		})
	}
}

// These tests modify the process environment and must not run in parallel.

func TestValidate_APIKeyFromEnvironment(t *testing.T) {
	t.Setenv("AGENTAPP_TEST_KEY", "from-env")
	cfg := config.Default()
	cfg.Providers.LLM.APIKeyEnv = "AGENTAPP_TEST_KEY"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := cfg.Providers.LLM.ResolveAPIKey(); got != "from-env" {
		t.Errorf("ResolveAPIKey() = %q", got)
	}
}

func TestValidate_MissingAPIKeyNamesVariable(t *testing.T) {
	t.Setenv(config.DefaultAPIKeyEnv, "")
	err := config.Validate(config.Default())
	if err == nil || !strings.Contains(err.Error(), "set GEMINI_API_KEY") {
		t.Fatalf("expected missing GEMINI_API_KEY error, got %v", err)
	}
}

func TestLoadOrDefault(t *testing.T) {
	t.Setenv(config.DefaultAPIKeyEnv, "from-env")
	dir := t.TempDir()

	cfg, found, err := config.LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if found || cfg.Server.ListenAddr != config.DefaultListenAddr {
		t.Errorf("expected defaults, got found=%v cfg=%+v", found, cfg.Server)
	}

	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  log_level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, found, err = config.LoadOrDefault(path)
	if err != nil || !found || cfg.Server.LogLevel != config.LogWarn {
		t.Errorf("existing file: cfg=%+v found=%v err=%v", cfg, found, err)
	}

	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := config.LoadOrDefault(path); err == nil {
		t.Error("expected parse error for broken file")
	}
}

// ── registry ─────────────────────────────────────────────────────────────────

func TestRegistry_CreateLLM(t *testing.T) {
	t.Parallel()
	reg := config.NewRegistry()
	var got config.ProviderEntry
	reg.RegisterLLM("gemini", func(e config.ProviderEntry) (llm.Provider, error) {
		got = e
		return &llmmock.Provider{}, nil
	})
	reg.RegisterLLM("broken", func(config.ProviderEntry) (llm.Provider, error) {
		return nil, errors.New("no credentials")
	})

	entry := config.ProviderEntry{Name: "gemini", Model: "gemini-2.5-pro"}
	p, err := reg.CreateLLM(entry)
	if err != nil || p == nil {
		t.Fatalf("CreateLLM: %v", err)
	}
	if got.Model != "gemini-2.5-pro" {
		t.Errorf("factory received %+v", got)
	}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Errorf("mock Complete: %v", err)
	}

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "nope"}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("unregistered: err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "broken"}); err == nil || !strings.Contains(err.Error(), "no credentials") {
		t.Errorf("broken factory: err = %v", err)
	}
	if names := reg.LLMNames(); !slices.Equal(names, []string{"broken", "gemini"}) {
		t.Errorf("LLMNames() = %v", names)
	}
}

func TestLogLevel_Slog(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   config.LogLevel
		want slog.Level
	}{
		{config.LogDebug, slog.LevelDebug},
		{config.LogInfo, slog.LevelInfo},
		{config.LogWarn, slog.LevelWarn},
		{config.LogError, slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := tt.in.Slog(); got != tt.want {
			t.Errorf("LogLevel(%q).Slog() = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "gemini-key")
	t.Setenv("OPENAI_API_KEY", "openai-key")
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Providers.Fallbacks) != 2 || cfg.Providers.Fallbacks[1].Name != "ollama" {
		t.Errorf("fallbacks = %+v", cfg.Providers.Fallbacks)
	}
	if cfg.Resilience.ResetTimeout != 30*time.Second || !cfg.MCP.Enabled {
		t.Errorf("resilience/mcp = %+v / %+v", cfg.Resilience, cfg.MCP)
	}
}
