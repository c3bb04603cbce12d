// Package config provides the configuration schema, loader, provider
// registry, and hot-reload watcher for the agent server.
package config

import (
	"log/slog"
	"os"
	"slices"
	"time"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Slog maps l to the matching [slog.Level]. Unknown values map to info.
func (l LogLevel) Slog() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config is the root configuration structure. Load it with [Load] or
// [LoadFromReader]; both start from [Default] so omitted keys keep their
// default values.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Agent      AgentConfig      `yaml:"agent"`
	Resilience ResilienceConfig `yaml:"resilience"`
	MCP        MCPConfig        `yaml:"mcp"`
}

// ServerConfig holds HTTP and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`

	// RequestTimeout bounds every agent run. Hot-reloadable.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// FrontendDir holds the built single-page app served under /app/.
	FrontendDir string `yaml:"frontend_dir"`

	// CORSOrigins lists the origins allowed to call the API. "*" allows any.
	CORSOrigins []string `yaml:"cors_origins"`

	// TLS enables HTTPS when set.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds PEM certificate paths.
type TLSConfig struct {
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// ProvidersConfig selects the model backend and its failover chain.
type ProvidersConfig struct {
	// LLM is the primary backend.
	LLM ProviderEntry `yaml:"llm"`

	// Fallbacks are tried in order when the primary fails or its circuit is
	// open.
	Fallbacks []ProviderEntry `yaml:"fallbacks"`
}

// ProviderEntry configures one backend. Name selects the factory in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered implementation, e.g. "gemini" or "openai".
	Name string `yaml:"name"`

	// Model selects the model within the provider.
	Model string `yaml:"model"`

	// APIKey authenticates against the provider. When empty the key is read
	// from the environment variable named by APIKeyEnv.
	APIKey string `yaml:"api_key"`

	// APIKeyEnv names the environment variable holding the key.
	APIKeyEnv string `yaml:"api_key_env"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Options holds provider-specific values not covered above.
	Options map[string]any `yaml:"options"`
}

// keylessProviders run locally and need no API key.
var keylessProviders = []string{"ollama", "llamacpp", "llamafile"}

// Keyless reports whether the provider can run without an API key.
func (e ProviderEntry) Keyless() bool {
	return slices.Contains(keylessProviders, e.Name)
}

// ResolveAPIKey returns APIKey, or the value of the APIKeyEnv variable when
// APIKey is empty.
func (e ProviderEntry) ResolveAPIKey() string {
	if e.APIKey != "" {
		return e.APIKey
	}
	if e.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(e.APIKeyEnv)
}

// AgentConfig bounds every agent run.
type AgentConfig struct {
	// MaxRounds is the maximum number of model invocations per request.
	MaxRounds int `yaml:"max_rounds"`

	// MaxToolRetries is how many consecutive failed tool calls the model may
	// recover from. Zero fails the run on the first tool error.
	MaxToolRetries int `yaml:"max_tool_retries"`

	// MaxTokens caps each completion. Zero means provider default.
	MaxTokens int `yaml:"max_tokens"`
}

// ResilienceConfig tunes the per-backend circuit breakers.
type ResilienceConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
	HalfOpenMax  int           `yaml:"half_open_max"`
}

// MCPConfig controls the MCP tool server.
type MCPConfig struct {
	// Enabled mounts /mcp/{agent_id}.
	Enabled bool `yaml:"enabled"`
}

// Default values.
const (
	DefaultListenAddr     = ":8000"
	DefaultRequestTimeout = 60 * time.Second
	DefaultFrontendDir    = "frontend/dist"
	DefaultLLMProvider    = "gemini"
	DefaultLLMModel       = "gemini-2.5-pro"
	DefaultAPIKeyEnv      = "GEMINI_API_KEY"
	DefaultMaxRounds      = 10
	DefaultMaxToolRetries = 1
)

// DefaultCORSOrigins are the local frontend dev servers.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr:     DefaultListenAddr,
			LogLevel:       LogInfo,
			RequestTimeout: DefaultRequestTimeout,
			FrontendDir:    DefaultFrontendDir,
			CORSOrigins:    slices.Clone(DefaultCORSOrigins),
		},
		Providers: ProvidersConfig{
			LLM: ProviderEntry{
				Name:      DefaultLLMProvider,
				Model:     DefaultLLMModel,
				APIKeyEnv: DefaultAPIKeyEnv,
			},
		},
		Agent: AgentConfig{
			MaxRounds:      DefaultMaxRounds,
			MaxToolRetries: DefaultMaxToolRetries,
		},
		MCP: MCPConfig{Enabled: true},
	}
}
