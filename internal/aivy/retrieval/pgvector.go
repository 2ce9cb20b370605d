package retrieval

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

// cosine distance: similarity = 1 - (a <=> b)
const matchDocumentsQuery = `
	SELECT id, document_id, content, metadata, 1 - (embedding <=> $1) AS similarity
	FROM document_chunks
	WHERE embedding IS NOT NULL
	  AND 1 - (embedding <=> $1) >= $2
	  AND char_length(content) >= $3
	ORDER BY embedding <=> $1
	LIMIT $4`

// VectorRetriever searches document_chunks by embedding similarity.
type VectorRetriever struct {
	db       *sql.DB
	embedder Embedder
	opts     Options
	logger   logger.Logger
}

func NewVectorRetriever(db *sql.DB, embedder Embedder, opts Options, log logger.Logger) *VectorRetriever {
	return &VectorRetriever{
		db:       db,
		embedder: embedder,
		opts:     opts,
		logger:   logger.ForComponent(log, "vector-retriever"),
	}
}

// Retrieve embeds query and runs the strict pass, then the relaxed pass if
// the strict one came back empty. A failed relaxed pass after a successful
// strict pass yields no chunks rather than an error.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]models.KnowledgeChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, ErrEmbeddingEmpty
	}
	vector := pgvector.NewVector(embedding)

	chunks, strictErr := r.search(ctx, vector, r.opts.SimilarityThreshold, r.opts.MinContentLength)
	if strictErr != nil {
		r.logger.Warn("vector search failed", map[string]interface{}{
			"threshold": r.opts.SimilarityThreshold,
			"error":     strictErr.Error(),
		})
	}
	if len(chunks) > 0 {
		return chunks, nil
	}

	metrics.RetrievalFallbacks.Inc()
	fallback, err := r.search(ctx, vector, r.opts.FallbackThreshold, r.opts.FallbackMinContentLength)
	if err != nil {
		if strictErr != nil {
			return nil, err
		}
		r.logger.Warn("fallback vector search failed", map[string]interface{}{
			"threshold": r.opts.FallbackThreshold,
			"error":     err.Error(),
		})
		return []models.KnowledgeChunk{}, nil
	}

	r.logger.Debug("used fallback similarity threshold", map[string]interface{}{
		"threshold": r.opts.FallbackThreshold,
		"chunks":    len(fallback),
	})
	return fallback, nil
}

func (r *VectorRetriever) search(ctx context.Context, vector pgvector.Vector, threshold float64, minLength int) ([]models.KnowledgeChunk, error) {
	rows, err := r.db.QueryContext(ctx, matchDocumentsQuery, vector, threshold, minLength, r.opts.MatchCount)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer rows.Close()

	chunks := []models.KnowledgeChunk{}
	for rows.Next() {
		var (
			id, documentID sql.NullString
			content        string
			metadata       []byte
			similarity     float64
		)
		if err := rows.Scan(&id, &documentID, &content, &metadata, &similarity); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrSearchFailed, err)
		}

		meta := map[string]interface{}{}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &meta); err != nil {
				meta = map[string]interface{}{}
			}
		}
		if id.Valid {
			meta["chunkId"] = id.String
		}
		if documentID.Valid {
			meta["documentId"] = documentID.String
		}

		chunks = append(chunks, models.KnowledgeChunk{
			Content:    content,
			Similarity: similarity,
			Metadata:   meta,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, classify(ctx, err)
	}
	return chunks, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrSearchTimeout
	}
	return fmt.Errorf("%w: %v", ErrSearchFailed, err)
}

// Schema creates the pgvector extension and the chunk table. dimensions
// must match the embedding model.
func Schema(dimensions int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			document_id UUID NOT NULL,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL DEFAULT 0,
			embedding vector(%d),
			metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
			token_count INTEGER,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_embedding
			ON document_chunks USING hnsw (embedding vector_cosine_ops)`,
		`CREATE INDEX IF NOT EXISTS idx_document_chunks_document ON document_chunks (document_id)`,
	}
}
