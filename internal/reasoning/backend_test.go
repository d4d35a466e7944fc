package reasoning

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestNewAnthropicBackend_WithAPIKey(t *testing.T) {
	b, err := NewAnthropicBackend(context.Background(), AnthropicConfig{
		APIKey: "test-key-123",
		Model:  string(anthropic.ModelClaudeSonnet4_5_20250929),
	})
	if err != nil {
		t.Fatalf("NewAnthropicBackend failed: %v", err)
	}

	if b.Model() != string(anthropic.ModelClaudeSonnet4_5_20250929) {
		t.Errorf("Model = %q", b.Model())
	}
	if b.Name() != "anthropic" {
		t.Errorf("Name = %q, want anthropic", b.Name())
	}
}

func TestNewAnthropicBackend_DefaultModel(t *testing.T) {
	b, err := NewAnthropicBackend(context.Background(), AnthropicConfig{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewAnthropicBackend failed: %v", err)
	}

	if b.Model() != string(anthropic.ModelClaudeSonnet4_20250514) {
		t.Errorf("Default model = %q, want %q", b.Model(), anthropic.ModelClaudeSonnet4_20250514)
	}
}

func TestNewAnthropicBackend_NoAPIKey(t *testing.T) {
	original := os.Getenv("ANTHROPIC_API_KEY")
	defer os.Setenv("ANTHROPIC_API_KEY", original)
	os.Unsetenv("ANTHROPIC_API_KEY")

	_, err := NewAnthropicBackend(context.Background(), AnthropicConfig{})
	if err == nil {
		t.Fatal("NewAnthropicBackend should fail without API key")
	}

	expected := "ANTHROPIC_API_KEY environment variable is not set"
	if err.Error() != expected {
		t.Errorf("Error = %q, want %q", err.Error(), expected)
	}
}

func TestTranslateModelForBedrock(t *testing.T) {
	tests := []struct {
		in   anthropic.Model
		want anthropic.Model
	}{
		{anthropic.ModelClaudeSonnet4_20250514, "us.anthropic.claude-sonnet-4-20250514-v1:0"},
		{anthropic.ModelClaudeOpus4_5_20251101, "us.anthropic.claude-opus-4-5-20251101-v1:0"},
		{"us.anthropic.custom-v1:0", "us.anthropic.custom-v1:0"},
	}

	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			if got := translateModelForBedrock(tt.in); got != tt.want {
				t.Errorf("translateModelForBedrock(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestClassifyAnthropic_PlainErrorIsFatal(t *testing.T) {
	err := classifyAnthropic(errors.New("connection reset"))
	if IsTransient(err) {
		t.Error("non-API error should not be transient")
	}
}

func TestNewOpenAIBackend_NoAPIKey(t *testing.T) {
	original := os.Getenv("OPENAI_API_KEY")
	defer os.Setenv("OPENAI_API_KEY", original)
	os.Unsetenv("OPENAI_API_KEY")

	if _, err := NewOpenAIBackend(OpenAIConfig{}); err == nil {
		t.Fatal("NewOpenAIBackend should fail without API key")
	}
}

func TestNewOpenAIBackend_DefaultModel(t *testing.T) {
	b, err := NewOpenAIBackend(OpenAIConfig{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewOpenAIBackend failed: %v", err)
	}
	if b.Model() != "gpt-4o" {
		t.Errorf("Model = %q, want gpt-4o", b.Model())
	}
}

func TestClassifyOpenAI(t *testing.T) {
	tests := []struct {
		msg       string
		transient bool
	}{
		{"API returned unexpected status code: 429: Rate limit reached", true},
		{"API returned unexpected status code: 503: overloaded", true},
		{"API returned unexpected status code: 401: invalid api key", false},
		{"context deadline exceeded", false},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			if got := IsTransient(classifyOpenAI(errors.New(tt.msg))); got != tt.transient {
				t.Errorf("transient = %v, want %v", got, tt.transient)
			}
		})
	}
}

func TestGenerationInt(t *testing.T) {
	info := map[string]any{"PromptTokens": 12, "CompletionTokens": float64(7)}
	if got := generationInt(info, "PromptTokens"); got != 12 {
		t.Errorf("PromptTokens = %d, want 12", got)
	}
	if got := generationInt(info, "CompletionTokens"); got != 7 {
		t.Errorf("CompletionTokens = %d, want 7", got)
	}
	if got := generationInt(nil, "TotalTokens"); got != 0 {
		t.Errorf("missing key = %d, want 0", got)
	}
}
