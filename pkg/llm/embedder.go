package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string
	APIKey    string
	Dim       int
	BatchSize int
}

// Embedder creates embedding vectors through an Ollama or OpenAI embedding
// model.
type Embedder struct {
	config EmbedderConfig
	client embeddings.EmbedderClient
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		if config.Provider == ProviderOpenAI {
			config.Model = "text-embedding-ada-002"
		} else {
			config.Model = "nomic-embed-text:latest"
		}
	}
	if config.Dim == 0 {
		if config.Provider == ProviderOpenAI {
			config.Dim = 1536
		} else {
			config.Dim = 768
		}
	}
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}

	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch config.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{
			openai.WithEmbeddingModel(config.Model),
		}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		client, err = openai.New(opts...)
	case ProviderOllama, "":
		baseURL := config.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		client, err = ollama.New(
			ollama.WithModel(config.Model),
			ollama.WithServerURL(baseURL),
		)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", config.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding model: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// NewEmbedderWithClient wraps an existing embedding client. Used by tests to
// substitute a fake backend.
func NewEmbedderWithClient(client embeddings.EmbedderClient, dim int) *Embedder {
	return &Embedder{
		config: EmbedderConfig{Dim: dim, BatchSize: 32},
		client: client,
	}
}

// EmbedDocuments embeds texts in batches of the configured size.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	batchSize := e.config.BatchSize

	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.client.CreateEmbedding(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to create embeddings: %w", err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(batch), end-start)
		}

		for _, vec := range batch {
			if e.config.Dim > 0 && len(vec) != e.config.Dim {
				return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(vec), e.config.Dim)
			}
		}

		vectors = append(vectors, batch...)
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("no embedding returned for query")
	}
	return vectors[0], nil
}

func (e *Embedder) Dimension() int {
	return e.config.Dim
}
