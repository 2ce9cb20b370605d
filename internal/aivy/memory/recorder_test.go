package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

type testLogger struct {
	mu         sync.Mutex
	errors     []string
	warns      []string
	warnFields []map[string]interface{}
}

func (l *testLogger) Debug(msg string, fields map[string]interface{}) {}
func (l *testLogger) Info(msg string, fields map[string]interface{})  {}
func (l *testLogger) Warn(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
	l.warnFields = append(l.warnFields, fields)
}
func (l *testLogger) Error(msg string, fields map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}
func (l *testLogger) WithFields(fields map[string]interface{}) logger.Logger { return l }
func (l *testLogger) WithError(err error) logger.Logger                      { return l }
func (l *testLogger) With(fields map[string]interface{}) logger.Logger       { return l }

func TestComputeResponseMetrics(t *testing.T) {
	long := strings.Repeat("insight ", 60)

	tests := []struct {
		name     string
		response string
		focus    []string
		want     models.ResponseMetrics
	}{
		{
			name:     "short plain answer",
			response: "FabriiQ supports that.",
			want:     models.ResponseMetrics{WordCount: 3, ExecutiveAppropriate: 0.5, ConversationalFlow: 0.5, ActionOriented: 0.5, StrategicInsight: 0.5},
		},
		{
			name:     "executive length with question and action",
			response: long + "What would you consider the next step?",
			focus:    []string{"scalability"},
			want:     models.ResponseMetrics{WordCount: 67, ExecutiveAppropriate: 1, ConversationalFlow: 1, ActionOriented: 1, StrategicInsight: 1},
		},
		{
			name:     "empty response",
			response: "",
			want:     models.ResponseMetrics{WordCount: 0, ExecutiveAppropriate: 0.5, ConversationalFlow: 0.5, ActionOriented: 0.5, StrategicInsight: 0.5},
		},
		{
			name:     "too long",
			response: strings.Repeat("word ", 201),
			want:     models.ResponseMetrics{WordCount: 201, ExecutiveAppropriate: 0.5, ConversationalFlow: 0.5, ActionOriented: 0.5, StrategicInsight: 0.5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeResponseMetrics(tt.response, models.IntentAnalysis{StrategicFocus: tt.focus})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecorder_RoundTrip(t *testing.T) {
	store := NewInMemoryStore()
	m := New(store, 5, logger.NewNoOpLogger())
	rec := NewRecorder(store, nil, logger.NewNoOpLogger())
	ctx := context.Background()

	sessionID, err := m.GetOrCreateSession(ctx, "visitor-1", "")
	require.NoError(t, err)

	intent := models.IntentAnalysis{PrimaryIntent: models.IntentProblemSolving, KeyTopics: []string{"enrollment"}}
	sources := []models.KnowledgeChunk{{Content: "Enrollment playbook", Similarity: 0.82}}
	require.NoError(t, rec.Record(ctx, sessionID, "Our enrollment challenges keep growing.", "Have you considered automation?", intent, sources))

	history, err := m.GetHistory(ctx, sessionID, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Our enrollment challenges keep growing.", history[0].UserQuery)
	assert.Equal(t, "Have you considered automation?", history[0].ResponseContent)
	assert.Equal(t, sources, history[0].KnowledgeSources)
	assert.Equal(t, 1.0, history[0].ResponseMetrics.ConversationalFlow)

	sess, err := store.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, models.EngagementInitial, sess.ConversationState.EngagementLevel)
	assert.Equal(t, []string{"Our enrollment challenges keep growing."}, sess.ConversationState.ExpressedChallenges)
	assert.Contains(t, sess.ConversationState.DiscussedTopics, "enrollment")
}

func TestRecorder_EngagementAdvancesWithTurns(t *testing.T) {
	store := NewInMemoryStore()
	rec := NewRecorder(store, nil, logger.NewNoOpLogger())
	ctx := context.Background()

	sessionID, err := store.GetOrCreateSession(ctx, "visitor-2", nil)
	require.NoError(t, err)

	want := []models.EngagementLevel{
		models.EngagementInitial, models.EngagementExploring, models.EngagementExploring,
		models.EngagementEvaluating, models.EngagementEvaluating, models.EngagementEvaluating,
		models.EngagementDeciding,
	}
	for i, level := range want {
		require.NoError(t, rec.Record(ctx, sessionID, "tell me more", "Sure.", models.IntentAnalysis{}, nil))
		sess, err := store.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, level, sess.ConversationState.EngagementLevel, "turn %d", i+1)
	}
}

func TestRecorder_FailuresAreTyped(t *testing.T) {
	rec := NewRecorder(failingStore{err: errors.New("disk full")}, nil, logger.NewNoOpLogger())

	err := rec.Record(context.Background(), "s1", "q", "r", models.IntentAnalysis{}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTurnRecordFailed, apperrors.AsStandardError(err).Code)
}

func TestRecorder_RecordBestEffortSwallows(t *testing.T) {
	log := &testLogger{}
	rec := NewRecorder(failingStore{err: errors.New("disk full")}, nil, log)

	assert.NotPanics(t, func() {
		rec.RecordBestEffort(context.Background(), "s1", "q", "r", models.IntentAnalysis{}, nil)
	})
	assert.Equal(t, []string{"failed to record conversation turn"}, log.errors)
}
