package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/common/logger"
)

type stubEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	s.calls++
	return s.vec, s.err
}

var chunkColumns = []string{"id", "document_id", "content", "metadata", "similarity"}

func newVectorRetriever(t *testing.T, emb Embedder) (*VectorRetriever, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewVectorRetriever(db, emb, DefaultOptions(), logger.NewNoOpLogger()), mock
}

func TestVectorRetriever_StrictPass(t *testing.T) {
	r, mock := newVectorRetriever(t, &stubEmbedder{vec: []float32{0.1, 0.2, 0.3}})

	mock.ExpectQuery("FROM document_chunks").
		WithArgs(sqlmock.AnyArg(), 0.7, 200, 5).
		WillReturnRows(sqlmock.NewRows(chunkColumns).
			AddRow("c1", "d1", "Multi-campus rollout playbook", `{"source":"playbook.pdf"}`, 0.91).
			AddRow("c2", "d1", "Enrollment growth case study", `{}`, 0.78))

	chunks, err := r.Retrieve(context.Background(), "How do we roll out across campuses?")
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, "Multi-campus rollout playbook", chunks[0].Content)
	assert.Equal(t, 0.91, chunks[0].Similarity)
	assert.Equal(t, "playbook.pdf", chunks[0].Metadata["source"])
	assert.Equal(t, "c1", chunks[0].Metadata["chunkId"])
	assert.Equal(t, "d1", chunks[0].Metadata["documentId"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorRetriever_FallbackWhenStrictEmpty(t *testing.T) {
	r, mock := newVectorRetriever(t, &stubEmbedder{vec: []float32{0.1}})

	mock.ExpectQuery("FROM document_chunks").
		WithArgs(sqlmock.AnyArg(), 0.7, 200, 5).
		WillReturnRows(sqlmock.NewRows(chunkColumns))
	mock.ExpectQuery("FROM document_chunks").
		WithArgs(sqlmock.AnyArg(), 0.5, 150, 5).
		WillReturnRows(sqlmock.NewRows(chunkColumns).
			AddRow("c3", nil, "Short overview of analytics", nil, 0.55))

	chunks, err := r.Retrieve(context.Background(), "analytics")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0.55, chunks[0].Similarity)
	assert.NotContains(t, chunks[0].Metadata, "documentId")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVectorRetriever_StrictErrorFallsBack(t *testing.T) {
	r, mock := newVectorRetriever(t, &stubEmbedder{vec: []float32{0.1}})

	mock.ExpectQuery("FROM document_chunks").WillReturnError(sql.ErrConnDone)
	mock.ExpectQuery("FROM document_chunks").
		WillReturnRows(sqlmock.NewRows(chunkColumns).AddRow("c1", "d1", "content", `{}`, 0.6))

	chunks, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Len(t, chunks, 1)
}

func TestVectorRetriever_FallbackErrorAfterEmptyStrict(t *testing.T) {
	r, mock := newVectorRetriever(t, &stubEmbedder{vec: []float32{0.1}})

	mock.ExpectQuery("FROM document_chunks").WillReturnRows(sqlmock.NewRows(chunkColumns))
	mock.ExpectQuery("FROM document_chunks").WillReturnError(sql.ErrConnDone)

	chunks, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestVectorRetriever_BothPassesFail(t *testing.T) {
	r, mock := newVectorRetriever(t, &stubEmbedder{vec: []float32{0.1}})

	mock.ExpectQuery("FROM document_chunks").WillReturnError(sql.ErrConnDone)
	mock.ExpectQuery("FROM document_chunks").WillReturnError(sql.ErrConnDone)

	_, err := r.Retrieve(context.Background(), "query")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestVectorRetriever_InputErrors(t *testing.T) {
	emb := &stubEmbedder{vec: []float32{0.1}}
	r, _ := newVectorRetriever(t, emb)

	_, err := r.Retrieve(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	assert.Equal(t, 0, emb.calls)

	failing := errors.New("embedding service down")
	r, _ = newVectorRetriever(t, &stubEmbedder{err: failing})
	_, err = r.Retrieve(context.Background(), "query")
	assert.ErrorIs(t, err, failing)

	r, _ = newVectorRetriever(t, &stubEmbedder{})
	_, err = r.Retrieve(context.Background(), "query")
	assert.ErrorIs(t, err, ErrEmbeddingEmpty)
}

func TestSchema(t *testing.T) {
	stmts := Schema(1024)
	require.NotEmpty(t, stmts)
	assert.Contains(t, stmts[0], "CREATE EXTENSION IF NOT EXISTS vector")
	assert.Contains(t, stmts[1], "vector(1024)")
}

func TestNop(t *testing.T) {
	chunks, err := Nop{}.Retrieve(context.Background(), "anything")
	require.NoError(t, err)
	assert.NotNil(t, chunks)
	assert.Empty(t, chunks)
}
