package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// KnownLLMProviders lists the provider names shipped with the server. Other
// names are accepted with a warning, since a factory may be registered by an
// embedding program.
var KnownLLMProviders = []string{
	"gemini", "openai", "anthropic", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
}

// Load reads and validates the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadOrDefault is [Load], except that a missing file yields a validated
// [Default] configuration. The boolean reports whether the file was found.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err == nil {
		return cfg, true, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}
	cfg = Default()
	if err := Validate(cfg); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// LoadFromReader decodes YAML from r over [Default] and validates the
// result. Unknown keys are rejected.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg and returns every problem found, joined.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr is required"))
	}
	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.request_timeout must be positive, got %s", cfg.Server.RequestTimeout))
	}
	for i, origin := range cfg.Server.CORSOrigins {
		if origin == "*" {
			continue
		}
		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("server.cors_origins[%d] %q is not an origin like http://host:port", i, origin))
		}
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Providers
	errs = append(errs, validateProvider("providers.llm", cfg.Providers.LLM)...)
	for i, fb := range cfg.Providers.Fallbacks {
		errs = append(errs, validateProvider(fmt.Sprintf("providers.fallbacks[%d]", i), fb)...)
	}

	// Agent
	if cfg.Agent.MaxRounds <= 0 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be positive, got %d", cfg.Agent.MaxRounds))
	}
	if cfg.Agent.MaxToolRetries < 0 {
		errs = append(errs, fmt.Errorf("agent.max_tool_retries must not be negative, got %d", cfg.Agent.MaxToolRetries))
	}
	if cfg.Agent.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("agent.max_tokens must not be negative, got %d", cfg.Agent.MaxTokens))
	}

	// Resilience
	r := cfg.Resilience
	if r.MaxFailures < 0 || r.HalfOpenMax < 0 || r.ResetTimeout < 0 {
		errs = append(errs, errors.New("resilience values must not be negative"))
	}

	return errors.Join(errs...)
}

func validateProvider(prefix string, e ProviderEntry) []error {
	var errs []error
	if e.Name == "" {
		errs = append(errs, fmt.Errorf("%s.name is required", prefix))
	} else if !slices.Contains(KnownLLMProviders, e.Name) {
		slog.Warn("config: unknown provider name, may be a typo or third-party provider",
			"field", prefix, "name", e.Name, "known", KnownLLMProviders)
	}
	if e.Model == "" {
		errs = append(errs, fmt.Errorf("%s.model is required", prefix))
	}
	if e.Name != "" && !e.Keyless() && e.ResolveAPIKey() == "" {
		if e.APIKeyEnv != "" {
			errs = append(errs, fmt.Errorf("%s: api key missing; set %s or %s.api_key", prefix, e.APIKeyEnv, prefix))
		} else {
			errs = append(errs, fmt.Errorf("%s: api key missing; set %s.api_key or %s.api_key_env", prefix, prefix, prefix))
		}
	}
	return errs
}
