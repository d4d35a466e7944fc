package reasoning

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const defaultOpenAIModel = "gpt-4o"

// OpenAIConfig contains configuration for an OpenAI-compatible backend.
type OpenAIConfig struct {
	// Model defaults to gpt-4o.
	Model string
	// APIKey is the OpenAI API key. If empty, uses OPENAI_API_KEY env var.
	APIKey string
	// BaseURL targets any OpenAI-compatible endpoint.
	BaseURL string
}

// OpenAIBackend calls an OpenAI-compatible chat completion endpoint through
// langchaingo.
type OpenAIBackend struct {
	llm   llms.Model
	model string
}

// NewOpenAIBackend creates a backend.
func NewOpenAIBackend(cfg OpenAIConfig) (*OpenAIBackend, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}

	return &OpenAIBackend{llm: llm, model: model}, nil
}

// Name identifies the backend in logs.
func (b *OpenAIBackend) Name() string {
	return "openai"
}

// Model returns the configured model name.
func (b *OpenAIBackend) Model() string {
	return b.model
}

// Complete sends the system and user messages and returns the first choice.
func (b *OpenAIBackend) Complete(ctx context.Context, req Request) (Response, error) {
	var messages []llms.MessageContent
	if system := systemWithHint(req); system != "" {
		messages = append(messages, textMessage(llms.ChatMessageTypeSystem, system))
	}
	messages = append(messages, textMessage(llms.ChatMessageTypeHuman, req.Prompt))

	resp, err := b.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(req.MaxTokens),
		llms.WithTemperature(req.Temperature),
	)
	if err != nil {
		return Response{}, classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	return Response{
		Text:         choice.Content,
		Model:        b.model,
		InputTokens:  generationInt(choice.GenerationInfo, "PromptTokens"),
		OutputTokens: generationInt(choice.GenerationInfo, "CompletionTokens"),
	}, nil
}

func textMessage(role llms.ChatMessageType, text string) llms.MessageContent {
	return llms.MessageContent{
		Role:  role,
		Parts: []llms.ContentPart{llms.TextContent{Text: text}},
	}
}

func generationInt(info map[string]any, key string) int64 {
	switch v := info[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	default:
		return 0
	}
}

// classifyOpenAI marks rate-limit and overload failures as transient. The
// client library reports HTTP failures only through the error text.
func classifyOpenAI(err error) error {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "rate_limit", "503", "overloaded"} {
		if strings.Contains(msg, marker) {
			return MarkTransient(err)
		}
	}
	return err
}
