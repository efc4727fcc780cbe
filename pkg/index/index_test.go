package index_test

import (
	"context"
	"strings"
	"testing"

	"github.com/kheld/ragdex/internal/models"
	"github.com/kheld/ragdex/pkg/index"
	"github.com/kheld/ragdex/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// keywordEmbedder maps texts onto a tiny deterministic vector space so
// retrieval order is predictable without a model server.
type keywordEmbedder struct{}

func embedText(text string) []float32 {
	lower := strings.ToLower(text)
	vec := []float32{0, 0, 1}
	if strings.Contains(lower, "cat") {
		vec[0] = 1
	}
	if strings.Contains(lower, "dog") {
		vec[1] = 1
	}
	return vec
}

func (keywordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = embedText(text)
	}
	return vectors, nil
}

func (keywordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	return embedText(text), nil
}

func (keywordEmbedder) Dimension() int { return 3 }

type fakeModel struct {
	response string
}

func (m *fakeModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: m.response}},
	}, nil
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, nil, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func testDocuments() []models.Document {
	return []models.Document{
		{ID: "cat-doc", Source: "cats.txt", Title: "Cats", Content: "Cats are independent animals."},
		{ID: "dog-doc", Source: "dogs.txt", Title: "Dogs", Content: "Dogs are loyal companions."},
	}
}

func TestFromDocuments(t *testing.T) {
	ctx := context.Background()

	idx, err := index.FromDocuments(ctx, testDocuments(),
		index.WithEmbedder(keywordEmbedder{}),
	)
	require.NoError(t, err)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	idx, err := index.FromDocuments(ctx, testDocuments(),
		index.WithEmbedder(keywordEmbedder{}),
	)
	require.NoError(t, err)

	nodes, err := idx.Retrieve(ctx, "tell me about cats", 1)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "cat-doc", nodes[0].DocID)
	assert.Contains(t, nodes[0].Text, "Cats")
	assert.NotEmpty(t, nodes[0].Embedding)
}

func TestInsertAndDelete(t *testing.T) {
	ctx := context.Background()

	idx, err := index.New(index.WithEmbedder(keywordEmbedder{}))
	require.NoError(t, err)

	require.NoError(t, idx.Insert(ctx, testDocuments()[0]))

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, idx.Delete(ctx, "cat-doc"))

	count, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestWithExplicitStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()

	idx, err := index.FromDocuments(ctx, testDocuments(),
		index.WithEmbedder(keywordEmbedder{}),
		index.WithStore(mem),
	)
	require.NoError(t, err)

	// Nodes went into the caller's store
	count, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	nodes, err := idx.Retrieve(ctx, "dogs", 1)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "dog-doc", nodes[0].DocID)
}

func TestNewRequiresEmbedder(t *testing.T) {
	_, err := index.New()
	assert.Error(t, err)
}

func TestAsQueryEngineRequiresLLM(t *testing.T) {
	idx, err := index.New(index.WithEmbedder(keywordEmbedder{}))
	require.NoError(t, err)

	_, err = idx.AsQueryEngine()
	assert.Error(t, err)
}

func TestAsQueryEngineEndToEnd(t *testing.T) {
	ctx := context.Background()

	idx, err := index.FromDocuments(ctx, testDocuments(),
		index.WithEmbedder(keywordEmbedder{}),
		index.WithLLM(&fakeModel{response: "Dogs are loyal."}),
		index.WithTopK(1),
	)
	require.NoError(t, err)

	qe, err := idx.AsQueryEngine()
	require.NoError(t, err)

	resp, err := qe.Query(ctx, "what are dogs like?")
	require.NoError(t, err)
	assert.Equal(t, "Dogs are loyal.", resp.Answer)
	require.Len(t, resp.SourceNodes, 1)
	assert.Equal(t, "dog-doc", resp.SourceNodes[0].DocID)
}

func TestAsChatEngineEndToEnd(t *testing.T) {
	ctx := context.Background()

	idx, err := index.FromDocuments(ctx, testDocuments(),
		index.WithEmbedder(keywordEmbedder{}),
		index.WithLLM(&fakeModel{response: "Cats are independent."}),
	)
	require.NoError(t, err)

	ce, err := idx.AsChatEngine()
	require.NoError(t, err)

	resp, err := ce.Chat(ctx, "tell me about cats")
	require.NoError(t, err)
	assert.Equal(t, "Cats are independent.", resp.Answer)
	assert.NotEmpty(t, resp.SourceNodes)
}
