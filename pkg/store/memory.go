package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"sync"

	"github.com/kheld/ragdex/internal/models"
)

// MemoryStore is the default vector store: brute-force cosine similarity over
// an in-memory node slice. It can be persisted to a JSON snapshot and opened
// again later.
type MemoryStore struct {
	mu    sync.RWMutex
	nodes []models.Node
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// OpenMemoryStore loads a store previously written with Persist.
func OpenMemoryStore(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store snapshot: %w", err)
	}

	var snapshot snapshotFile
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse store snapshot: %w", err)
	}

	return &MemoryStore{nodes: snapshot.Nodes}, nil
}

type snapshotFile struct {
	Nodes []models.Node `json:"nodes"`
}

func (m *MemoryStore) Add(_ context.Context, nodes []models.Node) error {
	for _, node := range nodes {
		if len(node.Embedding) == 0 {
			return fmt.Errorf("node %s has no embedding", node.ID)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append(m.nodes, nodes...)
	return nil
}

func (m *MemoryStore) Query(_ context.Context, embedding []float32, topK int) ([]models.ScoredNode, error) {
	if topK <= 0 {
		topK = 5
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	scored := make([]models.ScoredNode, 0, len(m.nodes))
	for _, node := range m.nodes {
		score, err := cosineSimilarity(embedding, node.Embedding)
		if err != nil {
			return nil, err
		}
		scored = append(scored, models.ScoredNode{Node: node, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (m *MemoryStore) DeleteByDoc(_ context.Context, docID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.nodes[:0]
	for _, node := range m.nodes {
		if node.DocID != docID {
			kept = append(kept, node)
		}
	}
	m.nodes = kept
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.nodes), nil
}

func (m *MemoryStore) Close() {}

// Persist writes the store contents to a JSON snapshot at path.
func (m *MemoryStore) Persist(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.Marshal(snapshotFile{Nodes: m.nodes})
	if err != nil {
		return fmt.Errorf("failed to encode store snapshot: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write store snapshot: %w", err)
	}
	return nil
}

func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("embedding dimension mismatch: %d vs %d", len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB))), nil
}
