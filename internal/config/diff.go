package config

import (
	"slices"
	"time"
)

// ConfigDiff describes what changed between two configs. Hot-reloadable
// settings carry their new value; everything else only raises
// RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RequestTimeoutChanged bool
	NewRequestTimeout     time.Duration

	// RestartRequired lists the keys that changed but only take effect after
	// a restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.RequestTimeoutChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new.
func Diff(old, new *Config) ConfigDiff {
	var d ConfigDiff

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.RequestTimeout != new.Server.RequestTimeout {
		d.RequestTimeoutChanged = true
		d.NewRequestTimeout = new.Server.RequestTimeout
	}

	restart := func(key string, changed bool) {
		if changed {
			d.RestartRequired = append(d.RestartRequired, key)
		}
	}
	restart("server.listen_addr", old.Server.ListenAddr != new.Server.ListenAddr)
	restart("server.frontend_dir", old.Server.FrontendDir != new.Server.FrontendDir)
	restart("server.cors_origins", !slices.Equal(old.Server.CORSOrigins, new.Server.CORSOrigins))
	restart("server.tls", !tlsEqual(old.Server.TLS, new.Server.TLS))
	restart("providers", !providersEqual(old.Providers, new.Providers))
	restart("agent", old.Agent != new.Agent)
	restart("resilience", old.Resilience != new.Resilience)
	restart("mcp", old.MCP != new.MCP)

	return d
}

func tlsEqual(a, b *TLSConfig) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func providersEqual(a, b ProvidersConfig) bool {
	return slices.EqualFunc(
		append([]ProviderEntry{a.LLM}, a.Fallbacks...),
		append([]ProviderEntry{b.LLM}, b.Fallbacks...),
		entryEqual,
	)
}

// entryEqual ignores Options, which are opaque to the server.
func entryEqual(a, b ProviderEntry) bool {
	return a.Name == b.Name && a.Model == b.Model && a.APIKey == b.APIKey &&
		a.APIKeyEnv == b.APIKeyEnv && a.BaseURL == b.BaseURL
}
