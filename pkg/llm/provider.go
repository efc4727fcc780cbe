package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// ProviderConfig selects and configures the chat model backend.
type ProviderConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
}

// NewModel builds a langchaingo model for the configured provider.
func NewModel(config ProviderConfig) (llms.Model, error) {
	switch config.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithModel(config.Model),
		}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		model, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI LLM: %w", err)
		}
		return model, nil

	case ProviderOllama, "":
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		model, err := ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(baseURL),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Ollama LLM: %w", err)
		}
		return model, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", config.Provider)
	}
}

// CallOptions translates the provider config into per-call options.
func (c ProviderConfig) CallOptions() []llms.CallOption {
	var opts []llms.CallOption
	if c.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(c.Temperature))
	}
	if c.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(c.MaxTokens))
	}
	return opts
}
