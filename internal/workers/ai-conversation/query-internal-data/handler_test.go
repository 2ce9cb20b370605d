package queryinternaldata

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/aivy/llm"
	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/retrieval"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

type stubRetriever struct {
	chunks []models.KnowledgeChunk
	err    error
	query  string
}

func (r *stubRetriever) Retrieve(_ context.Context, q string) ([]models.KnowledgeChunk, error) {
	r.query = q
	return r.chunks, r.err
}

func newHandler(t *testing.T, r retrieval.Retriever, cfg *Config) (*Handler, *memory.InMemoryStore) {
	t.Helper()
	log := logger.NewTestLogger(t)
	store := memory.NewInMemoryStore()
	return NewHandler(cfg, Dependencies{
		Memory:    memory.New(store, 5, log),
		Retriever: r,
		Logger:    log,
	}), store
}

func TestHandler_ExecuteRanksForExecutives(t *testing.T) {
	r := &stubRetriever{chunks: []models.KnowledgeChunk{
		{Content: "Library opening hours and parking information.", Similarity: 0.85},
		{Content: "A multi-campus implementation plan with strategic ROI milestones and measurable outcomes.", Similarity: 0.75},
	}}
	h, store := newHandler(t, r, DefaultConfig())
	ctx := context.Background()

	sessionID, err := store.GetOrCreateSession(ctx, "bpmn_2", nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdateSessionState(ctx, sessionID,
		models.ExecutiveProfile{InstitutionSize: models.InstitutionLarge}, models.DefaultConversationState()))

	out, err := h.Execute(ctx, &Input{Question: " What would implementation cost? ", SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, "What would implementation cost?", r.query)
	assert.Equal(t, 2, out.RetrievedCount)
	require.Equal(t, 2, out.ChunkCount)
	assert.Contains(t, out.KnowledgeChunks[0].Content, "multi-campus")
}

func TestHandler_ExecuteUsesSuppliedIntent(t *testing.T) {
	r := &stubRetriever{chunks: []models.KnowledgeChunk{
		{Content: "We resolve the challenge of fragmented advising with a single solution.", Similarity: 0.7},
		{Content: "Implementation timeline and cost breakdown for year one.", Similarity: 0.7},
	}}
	h, _ := newHandler(t, r, DefaultConfig())

	supplied := models.IntentAnalysis{PrimaryIntent: models.IntentProblemSolving}
	out, err := h.Execute(context.Background(), &Input{Question: "anything", IntentAnalysis: &supplied})
	require.NoError(t, err)
	require.Len(t, out.KnowledgeChunks, 2)
	assert.Contains(t, out.KnowledgeChunks[0].Content, "challenge")
}

func TestHandler_ExecuteFilter(t *testing.T) {
	r := &stubRetriever{chunks: []models.KnowledgeChunk{
		{Content: "Set the API parameter in the JSON configuration file and restart the server.", Similarity: 0.9},
	}}
	cfg := DefaultConfig()
	cfg.ExecutiveFilter = true
	h, _ := newHandler(t, r, cfg)

	out, err := h.Execute(context.Background(), &Input{Question: "How is it configured?"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.RetrievedCount)
	assert.Equal(t, 0, out.ChunkCount)
	assert.NotNil(t, out.KnowledgeChunks)
}

func TestHandler_ExecuteErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"timeout", retrieval.ErrSearchTimeout, apperrors.ErrCodeSearchTimeout},
		{"embedding", fmt.Errorf("%w: upstream 500", llm.ErrEmbeddingFailed), apperrors.ErrCodeEmbeddingFailed},
		{"search", fmt.Errorf("%w: relation missing", retrieval.ErrSearchFailed), apperrors.ErrCodeKnowledgeRetrievalFailed},
		{"other", errors.New("boom"), apperrors.ErrCodeKnowledgeRetrievalFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newHandler(t, &stubRetriever{err: tt.err}, DefaultConfig())
			_, err := h.Execute(context.Background(), &Input{Question: "budget"})

			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.code, stdErr.Code)
			assert.True(t, stdErr.Retryable)
		})
	}
}

func TestHandler_ExecuteEmptyQuestion(t *testing.T) {
	h, _ := newHandler(t, &stubRetriever{}, DefaultConfig())
	_, err := h.Execute(context.Background(), &Input{})

	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, apperrors.ErrCodeInvalidRequest, stdErr.Code)
}
