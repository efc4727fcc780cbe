package types

import (
	"context"
	"time"

	"github.com/kheld/ragdex/internal/models"
)

// Core interfaces

// Reader loads documents from some source (a directory, a website).
type Reader interface {
	LoadData(ctx context.Context) ([]models.Document, error)
}

// Splitter turns documents into chunks ready for embedding.
type Splitter interface {
	SplitDocuments(docs []models.Document) ([]models.Node, error)
	SplitText(text string) ([]string, error)
}

// Embedder produces embedding vectors for texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore stores embedded nodes and answers top-k similarity queries.
type VectorStore interface {
	Add(ctx context.Context, nodes []models.Node) error
	Query(ctx context.Context, embedding []float32, topK int) ([]models.ScoredNode, error)
	DeleteByDoc(ctx context.Context, docID string) error
	Count(ctx context.Context) (int, error)
	Close()
}

// Retriever finds the nodes most relevant to a query string.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredNode, error)
}

type ReaderConfig struct {
	InputDir      string
	Recursive     bool
	RequiredExts  []string
	ExcludeHidden bool
}

type SplitterConfig struct {
	Mode           string // "sentence" or "token"
	ChunkSize      int
	ChunkOverlap   int
	MinChunkLength int
}

type ScraperConfig struct {
	BaseURL           string
	MaxDepth          int
	RateLimit         float64
	IgnorePatterns    []string
	AllowedExtensions []string
	Timeout           time.Duration
	OnProgress        func(url string)
}
