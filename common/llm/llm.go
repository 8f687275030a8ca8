package llm

import (
	"context"
	"fmt"

	"github.com/invopop/jsonschema"
)

// Provider constants for LLM provider selection.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Client answers a single conversational turn.
type Client interface {
	Answer(ctx context.Context, req Request) (*Answer, error)
	Model() string
}

// Config holds LLM client configuration.
type Config struct {
	Provider  string // "openai" or "anthropic"
	APIKey    string // Required: API key for the provider
	BaseURL   string // Optional: custom API endpoint
	Model     string
	MaxTokens int
}

type Request struct {
	SystemPrompt string
	History      []Message
	UserPrompt   string
	MaxTokens    int
	Temperature  *float64 // nil = model default, explicit 0 = deterministic
}

// Message is a prior turn of the conversation.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

type Answer struct {
	Text             string
	FollowUp         []string
	PromptTokens     int
	CompletionTokens int
}

// structuredAnswer is the JSON shape requested from providers that support structured output.
type structuredAnswer struct {
	Answer   string   `json:"answer" jsonschema:"description=Direct answer to the user's question"`
	FollowUp []string `json:"followUp" jsonschema:"description=Up to three short follow-up questions the user might ask next"`
}

// New creates a Client for cfg.Provider. Defaults to OpenAI if no provider is specified.
func New(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	provider := cfg.Provider
	if provider == "" {
		provider = ProviderOpenAI
	}

	switch provider {
	case ProviderOpenAI:
		return newOpenAIClient(cfg), nil
	case ProviderAnthropic:
		return newAnthropicClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

func GenerateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
	return &t
}
