package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/aivy/prioritizer"
	"aivy-conversation/internal/aivy/retrieval"
	"aivy-conversation/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	out, err := run(t, "classify", "--role", "President", "What", "is", "the", "ROI", "and", "budget?")
	require.NoError(t, err)

	var analysis models.IntentAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis), out)
	assert.Equal(t, models.IntentDecisionSupport, analysis.PrimaryIntent)
	assert.Equal(t, models.AuthorityBudgetHolder, analysis.ExecutiveContext.AuthorityLevel)
}

func TestClassify_QueryFlag(t *testing.T) {
	out, err := run(t, "classify", "--query", "We are struggling with retention")
	require.NoError(t, err)

	var analysis models.IntentAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis), out)
	assert.Equal(t, models.IntentProblemSolving, analysis.PrimaryIntent)
	assert.Equal(t, models.AuthorityInfluencer, analysis.ExecutiveContext.AuthorityLevel)
}

func TestClassify_RequiresQuery(t *testing.T) {
	_, err := run(t, "classify")
	assert.Error(t, err)
}

func writeChunks(t *testing.T, chunks []models.KnowledgeChunk) string {
	t.Helper()
	data, err := json.Marshal(chunks)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "chunks.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestRank_JSON(t *testing.T) {
	path := writeChunks(t, []models.KnowledgeChunk{
		{Content: "API endpoint configuration and database schema details.", Similarity: 0.8},
		{Content: "Strategic ROI and budget outcomes for multi-campus leadership.", Similarity: 0.7},
	})

	out, err := run(t, "rank", "--query", "what is the ROI", "--chunks", path, "--institution-size", "large", "--json")
	require.NoError(t, err)

	var ranked []prioritizer.ScoredChunk
	require.NoError(t, json.Unmarshal([]byte(out), &ranked), out)
	require.Len(t, ranked, 2)
	assert.Contains(t, ranked[0].Content, "Strategic ROI")
	assert.GreaterOrEqual(t, ranked[0].CombinedScore, ranked[1].CombinedScore)
}

func TestRank_Table(t *testing.T) {
	path := writeChunks(t, []models.KnowledgeChunk{{Content: "Budget planning guide", Similarity: 0.5}})

	out, err := run(t, "rank", "-q", "budget", "--chunks", path)
	require.NoError(t, err)
	assert.Contains(t, out, "COMBINED")
	assert.Contains(t, out, "Budget planning guide")
}

func TestRank_Errors(t *testing.T) {
	_, err := run(t, "rank", "--query", "x")
	assert.Error(t, err, "chunks flag is required")

	_, err = run(t, "rank", "--query", "x", "--chunks", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = run(t, "rank", "--query", "x", "--chunks", bad)
	assert.ErrorContains(t, err, "parse chunks")
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	stmts := append(append([]string{}, memory.Schema...), retrieval.Schema(1024)...)
	for _, s := range stmts {
		mock.ExpectExec(s).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	n, err := migrate(context.Background(), db, 1024, true)
	require.NoError(t, err)
	assert.Equal(t, len(stmts), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_SkipVector(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	for _, s := range memory.Schema {
		mock.ExpectExec(s).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	n, err := migrate(context.Background(), db, 0, false)
	require.NoError(t, err)
	assert.Equal(t, len(memory.Schema), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate_RejectsZeroDimensions(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = migrate(context.Background(), db, 0, true)
	assert.ErrorContains(t, err, "dimensions")
}
