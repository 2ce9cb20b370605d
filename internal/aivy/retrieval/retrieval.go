package retrieval

import (
	"context"
	"errors"
	"time"

	"aivy-conversation/internal/common/config"
	"aivy-conversation/internal/models"
)

var (
	ErrEmptyQuery     = errors.New("EMPTY_QUERY")
	ErrSearchFailed   = errors.New("KNOWLEDGE_RETRIEVAL_FAILED")
	ErrSearchTimeout  = errors.New("SEARCH_TIMEOUT")
	ErrEmbeddingEmpty = errors.New("EMBEDDING_EMPTY")
)

// Retriever finds knowledge chunks relevant to a user query, most similar
// first.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]models.KnowledgeChunk, error)
}

// Embedder turns text into a query vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Options are the thresholds of a two-pass search. The relaxed pass runs
// only when the strict pass finds nothing.
type Options struct {
	MatchCount               int
	SimilarityThreshold      float64
	MinContentLength         int
	FallbackThreshold        float64
	FallbackMinContentLength int
}

func DefaultOptions() Options {
	return Options{
		MatchCount:               5,
		SimilarityThreshold:      0.7,
		MinContentLength:         200,
		FallbackThreshold:        0.5,
		FallbackMinContentLength: 150,
	}
}

// OptionsFromConfig fills zero values from DefaultOptions.
func OptionsFromConfig(cfg config.RetrievalConfig) Options {
	opts := DefaultOptions()
	if cfg.MatchCount > 0 {
		opts.MatchCount = cfg.MatchCount
	}
	if cfg.SimilarityThreshold > 0 {
		opts.SimilarityThreshold = cfg.SimilarityThreshold
	}
	if cfg.MinContentLength > 0 {
		opts.MinContentLength = cfg.MinContentLength
	}
	if cfg.FallbackThreshold > 0 {
		opts.FallbackThreshold = cfg.FallbackThreshold
	}
	if cfg.FallbackMinContentLength > 0 {
		opts.FallbackMinContentLength = cfg.FallbackMinContentLength
	}
	return opts
}

// Nop never finds anything. It backs the "none" retrieval backend.
type Nop struct{}

func (Nop) Retrieve(context.Context, string) ([]models.KnowledgeChunk, error) {
	return []models.KnowledgeChunk{}, nil
}

type timeoutRetriever struct {
	next    Retriever
	timeout time.Duration
}

// WithTimeout bounds every Retrieve call on next. A zero timeout returns
// next unchanged.
func WithTimeout(next Retriever, timeout time.Duration) Retriever {
	if timeout <= 0 {
		return next
	}
	return &timeoutRetriever{next: next, timeout: timeout}
}

func (r *timeoutRetriever) Retrieve(ctx context.Context, query string) ([]models.KnowledgeChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	chunks, err := r.next.Retrieve(ctx, query)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, ErrSearchTimeout
	}
	return chunks, err
}
