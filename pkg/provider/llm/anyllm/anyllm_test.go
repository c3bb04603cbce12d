package anyllm

import (
	"context"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/tiaan720/generic-agent-app/pkg/provider/llm"
)

// ── convertMessage ────────────────────────────────────────────────────────────

func TestConvertMessage_Roles(t *testing.T) {
	t.Parallel()
	for _, role := range []string{llm.RoleSystem, llm.RoleUser, llm.RoleAssistant} {
		t.Run(role, func(t *testing.T) {
			got := convertMessage(llm.Message{Role: role, Content: "hello"})
			if got.Role != role {
				t.Errorf("role = %q, want %q", got.Role, role)
			}
			if got.ContentString() != "hello" {
				t.Errorf("content = %q, want %q", got.ContentString(), "hello")
			}
		})
	}
}

func TestConvertMessage_AssistantWithToolCalls(t *testing.T) {
	t.Parallel()
	m := llm.Message{
		Role: llm.RoleAssistant,
		ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "plus_calculator", Arguments: `{"a":2,"b":3}`},
		},
	}
	got := convertMessage(m)
	if len(got.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(got.ToolCalls))
	}
	tc := got.ToolCalls[0]
	if tc.ID != "call_1" || tc.Type != "function" {
		t.Errorf("unexpected tool call header: %+v", tc)
	}
	if tc.Function.Name != "plus_calculator" {
		t.Errorf("function name = %q", tc.Function.Name)
	}
	if tc.Function.Arguments != `{"a":2,"b":3}` {
		t.Errorf("arguments = %q", tc.Function.Arguments)
	}
}

func TestConvertMessage_ToolResult(t *testing.T) {
	t.Parallel()
	got := convertMessage(llm.Message{Role: llm.RoleTool, Content: "5", ToolCallID: "call_1", Name: "plus_calculator"})
	if got.ToolCallID != "call_1" {
		t.Errorf("ToolCallID = %q", got.ToolCallID)
	}
	if got.Name != "plus_calculator" {
		t.Errorf("Name = %q", got.Name)
	}
}

// ── buildParams ───────────────────────────────────────────────────────────────

func TestBuildParams_ZeroTemperatureIsSent(t *testing.T) {
	t.Parallel()
	p := &Provider{model: "gemini-2.5-pro"}
	params := p.buildParams(llm.CompletionRequest{
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: "What is 1 + 1?"}},
		Temperature: 0,
	})
	if params.Temperature == nil || *params.Temperature != 0 {
		t.Fatalf("expected explicit zero temperature, got %v", params.Temperature)
	}
	if params.MaxTokens != nil {
		t.Errorf("MaxTokens should be unset, got %v", *params.MaxTokens)
	}
}

func TestBuildParams_MessagesAndTools(t *testing.T) {
	t.Parallel()
	p := &Provider{model: "gemini-2.5-pro"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "be brief"},
			{Role: llm.RoleUser, Content: "hi"},
		},
		MaxTokens:      128,
		SingleToolCall: true,
		Tools: []llm.ToolDefinition{{
			Name:        "plus_calculator",
			Description: "Add two numbers together",
			Parameters:  map[string]any{"type": "object"},
		}},
	})
	if len(params.Messages) != 2 || params.Messages[0].Role != anyllmlib.RoleSystem {
		t.Fatalf("expected the system message to lead, got %+v", params.Messages)
	}
	if len(params.Tools) != 1 || params.Tools[0].Function.Name != "plus_calculator" {
		t.Fatalf("unexpected tools: %+v", params.Tools)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 128 {
		t.Errorf("MaxTokens not propagated")
	}
}

func TestToolCalls(t *testing.T) {
	t.Parallel()
	if got := toolCalls(nil); got != nil {
		t.Errorf("toolCalls(nil) = %+v, want nil", got)
	}
	got := toolCalls([]anyllmlib.ToolCall{{
		ID:       "call_1",
		Type:     "function",
		Function: anyllmlib.FunctionCall{Name: "generate_story_idea", Arguments: `{"genre":"sci-fi"}`},
	}})
	if len(got) != 1 || got[0].ID != "call_1" || got[0].Name != "generate_story_idea" || got[0].Arguments != `{"genre":"sci-fi"}` {
		t.Errorf("toolCalls = %+v", got)
	}
}

// ── Constructor ───────────────────────────────────────────────────────────────

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New("", "gemini-2.5-pro"); err == nil {
		t.Error("expected error for empty providerName")
	}
	if _, err := New("gemini", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNew_OpenAI_WithAPIKey(t *testing.T) {
	t.Parallel()
	p, err := New("OpenAI", "gpt-4o", anyllmlib.WithAPIKey("sk-test"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Name() = %q, want openai", p.Name())
	}
	if p.Capabilities() != llm.LookupCapabilities("gpt-4o") {
		t.Error("Capabilities should follow the model family")
	}
}

func TestNew_Ollama_NoAPIKey(t *testing.T) {
	t.Parallel()
	if _, err := New("ollama", "llama3"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestComplete_EmptyRequest(t *testing.T) {
	t.Parallel()
	p, err := New("ollama", "llama3.1")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Complete(context.Background(), llm.CompletionRequest{}); err == nil {
		t.Fatal("expected error for a request without messages")
	}
}
