package index

import (
	"context"
	"fmt"

	"github.com/kheld/ragdex/internal/models"
	"github.com/kheld/ragdex/internal/types"
	"github.com/kheld/ragdex/pkg/engine"
	"github.com/kheld/ragdex/pkg/splitter"
	"github.com/kheld/ragdex/pkg/store"
	"github.com/tmc/langchaingo/llms"
)

// VectorIndex ties the pipeline together: documents are split into nodes,
// embedded, and added to a vector store; queries are embedded and answered by
// similarity search. The index is the single entry point for the pipeline.
type VectorIndex struct {
	store    types.VectorStore
	embedder types.Embedder
	splitter types.Splitter
	model    llms.Model
	topK     int
	callOpts []llms.CallOption
}

type Option func(*VectorIndex)

// WithStore sets the backing vector store. Defaults to the in-memory store.
func WithStore(s types.VectorStore) Option {
	return func(idx *VectorIndex) { idx.store = s }
}

func WithEmbedder(e types.Embedder) Option {
	return func(idx *VectorIndex) { idx.embedder = e }
}

func WithSplitter(s types.Splitter) Option {
	return func(idx *VectorIndex) { idx.splitter = s }
}

// WithLLM sets the model used by engines built from this index.
func WithLLM(m llms.Model) Option {
	return func(idx *VectorIndex) { idx.model = m }
}

func WithTopK(k int) Option {
	return func(idx *VectorIndex) { idx.topK = k }
}

func WithCallOptions(opts ...llms.CallOption) Option {
	return func(idx *VectorIndex) { idx.callOpts = opts }
}

func New(opts ...Option) (*VectorIndex, error) {
	idx := &VectorIndex{
		topK: 5,
	}
	for _, opt := range opts {
		opt(idx)
	}

	if idx.embedder == nil {
		return nil, fmt.Errorf("an embedder is required")
	}
	if idx.store == nil {
		idx.store = store.NewMemoryStore()
	}
	if idx.splitter == nil {
		s := splitter.New()
		idx.splitter = &s
	}

	return idx, nil
}

// FromDocuments builds an index and ingests the given documents into it.
func FromDocuments(ctx context.Context, docs []models.Document, opts ...Option) (*VectorIndex, error) {
	idx, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if err := idx.InsertDocuments(ctx, docs); err != nil {
		return nil, err
	}
	return idx, nil
}

// InsertDocuments splits, embeds, and stores documents.
func (idx *VectorIndex) InsertDocuments(ctx context.Context, docs []models.Document) error {
	nodes, err := idx.splitter.SplitDocuments(docs)
	if err != nil {
		return fmt.Errorf("failed to split documents: %w", err)
	}
	return idx.insertNodes(ctx, nodes)
}

// Insert adds a single document.
func (idx *VectorIndex) Insert(ctx context.Context, doc models.Document) error {
	return idx.InsertDocuments(ctx, []models.Document{doc})
}

func (idx *VectorIndex) insertNodes(ctx context.Context, nodes []models.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	texts := make([]string, len(nodes))
	for i, node := range nodes {
		texts[i] = node.Text
	}

	vectors, err := idx.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed nodes: %w", err)
	}
	if len(vectors) != len(nodes) {
		return fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(nodes))
	}

	for i := range nodes {
		nodes[i].Embedding = vectors[i]
	}

	if err := idx.store.Add(ctx, nodes); err != nil {
		return fmt.Errorf("failed to store nodes: %w", err)
	}
	return nil
}

// Delete removes every node belonging to a document.
func (idx *VectorIndex) Delete(ctx context.Context, docID string) error {
	return idx.store.DeleteByDoc(ctx, docID)
}

// Retrieve embeds the query and returns the top-k most similar nodes.
func (idx *VectorIndex) Retrieve(ctx context.Context, query string, topK int) ([]models.ScoredNode, error) {
	if topK <= 0 {
		topK = idx.topK
	}

	embedding, err := idx.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	return idx.store.Query(ctx, embedding, topK)
}

// Count reports how many nodes the backing store holds.
func (idx *VectorIndex) Count(ctx context.Context) (int, error) {
	return idx.store.Count(ctx)
}

// AsQueryEngine builds a stateless one-shot query engine over this index.
func (idx *VectorIndex) AsQueryEngine(opts ...engine.Option) (*engine.QueryEngine, error) {
	if idx.model == nil {
		return nil, fmt.Errorf("an LLM is required: build the index with WithLLM")
	}
	base := []engine.Option{
		engine.WithTopK(idx.topK),
		engine.WithCallOptions(idx.callOpts...),
	}
	return engine.NewQueryEngine(idx, idx.model, append(base, opts...)...)
}

// AsChatEngine builds a stateful conversational engine over this index.
func (idx *VectorIndex) AsChatEngine(opts ...engine.Option) (*engine.ChatEngine, error) {
	if idx.model == nil {
		return nil, fmt.Errorf("an LLM is required: build the index with WithLLM")
	}
	base := []engine.Option{
		engine.WithTopK(idx.topK),
		engine.WithCallOptions(idx.callOpts...),
	}
	return engine.NewChatEngine(idx, idx.model, append(base, opts...)...)
}
