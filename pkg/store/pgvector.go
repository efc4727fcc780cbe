package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kheld/ragdex/internal/models"
	"github.com/pgvector/pgvector-go"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	BatchSize  int
}

// PGVectorStore persists nodes in Postgres with the pgvector extension.
// Nodes arrive already embedded; the store never talks to an embedding model.
type PGVectorStore struct {
	config PGVectorConfig
	pool   *pgxpool.Pool
}

func NewPGVectorStore(ctx context.Context, config PGVectorConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "nodes"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 768
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	vs := &PGVectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %v", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			source TEXT NOT NULL,
			title TEXT,
			content TEXT,
			chunk_index INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, vs.config.TableName, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %v", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = 100)`,
		vs.config.TableName, vs.config.TableName)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %v", err)
	}

	return nil
}

func (vs *PGVectorStore) Add(ctx context.Context, nodes []models.Node) error {
	for _, node := range nodes {
		if len(node.Embedding) == 0 {
			return fmt.Errorf("node %s has no embedding", node.ID)
		}
		if len(node.Embedding) != vs.config.VectorDim {
			return fmt.Errorf("node %s embedding dimension %d does not match store dimension %d",
				node.ID, len(node.Embedding), vs.config.VectorDim)
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, doc_id, source, title, content, chunk_index, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		vs.config.TableName)

	// Upserts go to the server in BatchSize-sized batches, all inside one
	// transaction
	for start := 0; start < len(nodes); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(nodes) {
			end = len(nodes)
		}

		batch := &pgx.Batch{}
		for _, node := range nodes[start:end] {
			batch.Queue(stmt,
				node.ID,
				node.DocID,
				node.Source,
				sanitizeUTF8(node.Title),
				sanitizeUTF8(node.Text),
				node.Index,
				pgvector.NewVector(node.Embedding),
				node.Metadata,
			)
		}

		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert nodes: %v", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %v", err)
	}

	return nil
}

func (vs *PGVectorStore) Query(ctx context.Context, embedding []float32, topK int) ([]models.ScoredNode, error) {
	if topK <= 0 {
		topK = 5
	}

	query := fmt.Sprintf(`
		SELECT id, doc_id, source, title, content, chunk_index, metadata,
			1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query nodes: %v", err)
	}
	defer rows.Close()

	var results []models.ScoredNode
	for rows.Next() {
		var node models.ScoredNode
		var score float64
		err := rows.Scan(
			&node.ID,
			&node.DocID,
			&node.Source,
			&node.Title,
			&node.Text,
			&node.Index,
			&node.Metadata,
			&score,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		node.Score = float32(score)
		results = append(results, node)
	}

	return results, rows.Err()
}

func (vs *PGVectorStore) DeleteByDoc(ctx context.Context, docID string) error {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE doc_id = $1", vs.config.TableName)
	_, err := vs.pool.Exec(ctx, stmt, docID)
	if err != nil {
		return fmt.Errorf("failed to delete nodes: %v", err)
	}
	return nil
}

func (vs *PGVectorStore) Count(ctx context.Context) (int, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", vs.config.TableName)
	if err := vs.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count nodes: %v", err)
	}
	return count, nil
}

func (vs *PGVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
