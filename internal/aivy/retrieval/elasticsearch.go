package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

type searchHit struct {
	ID     string  `json:"_id"`
	Score  float64 `json:"_score"`
	Source struct {
		DocumentID string                 `json:"document_id"`
		Content    string                 `json:"content"`
		Metadata   map[string]interface{} `json:"metadata"`
	} `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		MaxScore *float64    `json:"max_score"`
		Hits     []searchHit `json:"hits"`
	} `json:"hits"`
}

// ElasticsearchRetriever runs a full-text match against an index of
// chunks. Scores are normalized by the best hit so the same thresholds
// apply as for vector search.
type ElasticsearchRetriever struct {
	client *elasticsearch.Client
	index  string
	opts   Options
	logger logger.Logger
}

func NewElasticsearchRetriever(client *elasticsearch.Client, index string, opts Options, log logger.Logger) *ElasticsearchRetriever {
	return &ElasticsearchRetriever{
		client: client,
		index:  index,
		opts:   opts,
		logger: logger.ForComponent(log, "es-retriever"),
	}
}

func (r *ElasticsearchRetriever) Retrieve(ctx context.Context, query string) ([]models.KnowledgeChunk, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	body, err := json.Marshal(map[string]interface{}{
		"size": r.opts.MatchCount * 2,
		"query": map[string]interface{}{
			"match": map[string]interface{}{
				"content": map[string]interface{}{"query": query},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: build query: %v", ErrSearchFailed, err)
	}

	res, err := r.client.Search(
		r.client.Search.WithContext(ctx),
		r.client.Search.WithIndex(r.index),
		r.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: %s", ErrSearchFailed, res.Status())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrSearchFailed, err)
	}

	maxScore := 0.0
	if parsed.Hits.MaxScore != nil {
		maxScore = *parsed.Hits.MaxScore
	}

	chunks := r.selectHits(parsed.Hits.Hits, maxScore, r.opts.SimilarityThreshold, r.opts.MinContentLength)
	if len(chunks) > 0 {
		return chunks, nil
	}

	metrics.RetrievalFallbacks.Inc()
	chunks = r.selectHits(parsed.Hits.Hits, maxScore, r.opts.FallbackThreshold, r.opts.FallbackMinContentLength)
	r.logger.Debug("used fallback similarity threshold", map[string]interface{}{
		"index":  r.index,
		"chunks": len(chunks),
	})
	return chunks, nil
}

func (r *ElasticsearchRetriever) selectHits(hits []searchHit, maxScore, threshold float64, minLength int) []models.KnowledgeChunk {
	chunks := []models.KnowledgeChunk{}
	if maxScore <= 0 {
		return chunks
	}
	for _, hit := range hits {
		if len(chunks) == r.opts.MatchCount {
			break
		}
		similarity := hit.Score / maxScore
		if similarity < threshold || len([]rune(hit.Source.Content)) < minLength {
			continue
		}

		meta := make(map[string]interface{}, len(hit.Source.Metadata)+2)
		for k, v := range hit.Source.Metadata {
			meta[k] = v
		}
		meta["chunkId"] = hit.ID
		if hit.Source.DocumentID != "" {
			meta["documentId"] = hit.Source.DocumentID
		}

		chunks = append(chunks, models.KnowledgeChunk{
			Content:    hit.Source.Content,
			Similarity: similarity,
			Metadata:   meta,
		})
	}
	return chunks
}
