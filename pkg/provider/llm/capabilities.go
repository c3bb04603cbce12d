package llm

import "strings"

// family maps a model-name prefix to its capabilities. Entries are matched in
// order, so more specific prefixes come first.
type family struct {
	prefix string
	caps   ModelCapabilities
}

var families = []family{
	{"gemini-2.5", ModelCapabilities{ContextWindow: 1_048_576, MaxOutputTokens: 65_536, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
	{"gemini-2.0-flash", ModelCapabilities{ContextWindow: 1_048_576, MaxOutputTokens: 8_192, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
	{"gemini", ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 8_192, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
	{"gpt-4o", ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 16_384, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
	{"gpt-4.1", ModelCapabilities{ContextWindow: 1_047_576, MaxOutputTokens: 32_768, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
	{"o1-mini", ModelCapabilities{ContextWindow: 128_000, MaxOutputTokens: 65_536, SupportsStreaming: true}},
	{"o3", ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 100_000, SupportsToolCalling: true, SupportsStreaming: true}},
	{"o4", ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 100_000, SupportsToolCalling: true, SupportsStreaming: true}},
	{"claude", ModelCapabilities{ContextWindow: 200_000, MaxOutputTokens: 8_192, SupportsToolCalling: true, SupportsVision: true, SupportsStreaming: true}},
}

// defaultCapabilities applies to models no family matches. Unknown models
// are assumed to call tools so local and self-hosted models stay usable.
var defaultCapabilities = ModelCapabilities{
	ContextWindow:       128_000,
	MaxOutputTokens:     4_096,
	SupportsToolCalling: true,
	SupportsStreaming:   true,
}

// LookupCapabilities returns the capabilities of model by case-insensitive
// prefix match against the known model families.
func LookupCapabilities(model string) ModelCapabilities {
	lower := strings.ToLower(model)
	for _, f := range families {
		if strings.HasPrefix(lower, f.prefix) {
			return f.caps
		}
	}
	return defaultCapabilities
}
