package parseuserintent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aivy-conversation/internal/aivy/memory"
	"aivy-conversation/internal/common/config"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

func newHandler(t *testing.T) (*Handler, *memory.InMemoryStore) {
	t.Helper()
	log := logger.NewTestLogger(t)
	store := memory.NewInMemoryStore()
	return NewHandler(DefaultConfig(), memory.New(store, 5, log), nil, log), store
}

func TestHandler_Execute(t *testing.T) {
	tests := []struct {
		name       string
		question   string
		intent     models.PrimaryIntent
		confidence float64
	}{
		{"decision support", "What is the ROI over three years?", models.IntentDecisionSupport, 0.85},
		{"problem solving", "We are struggling with retention", models.IntentProblemSolving, 0.80},
		{"relationship", "Can we schedule a demo?", models.IntentRelationshipBuilding, 0.75},
		{"information", "Tell me about AIVY", models.IntentInformationSeeking, 0.70},
	}

	h, _ := newHandler(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), &Input{Question: tt.question})
			require.NoError(t, err)
			assert.Equal(t, tt.intent, out.IntentAnalysis.PrimaryIntent)
			assert.InDelta(t, tt.confidence, out.IntentAnalysis.Confidence, 1e-9)
		})
	}
}

func TestHandler_ExecuteUsesSessionRole(t *testing.T) {
	h, store := newHandler(t)
	ctx := context.Background()

	sessionID, err := store.GetOrCreateSession(ctx, "bpmn_1", nil)
	require.NoError(t, err)
	require.NoError(t, store.UpdateSessionState(ctx, sessionID,
		models.ExecutiveProfile{Role: "president"}, models.DefaultConversationState()))

	out, err := h.Execute(ctx, &Input{Question: "What would this cost?", SessionID: sessionID})
	require.NoError(t, err)
	assert.Equal(t, models.AuthorityBudgetHolder, out.IntentAnalysis.ExecutiveContext.AuthorityLevel)
	assert.Equal(t, sessionID, out.SessionID)
}

func TestHandler_ExecuteUnknownSessionFallsBack(t *testing.T) {
	h, _ := newHandler(t)

	out, err := h.Execute(context.Background(), &Input{Question: "What is the budget?", SessionID: "missing"})
	require.NoError(t, err)
	assert.Equal(t, models.IntentDecisionSupport, out.IntentAnalysis.PrimaryIntent)
}

func TestHandler_ExecuteEmptyQuestion(t *testing.T) {
	h, _ := newHandler(t)

	_, err := h.Execute(context.Background(), &Input{Question: "  "})
	assert.True(t, errors.Is(err, ErrEmptyQuestion))
}

func TestConfigFromApp(t *testing.T) {
	cfg := ConfigFromApp(&config.Config{Workers: map[string]config.WorkerConfig{
		TaskType: {Enabled: true, Timeout: 2500},
	}})
	assert.Equal(t, "2.5s", cfg.Timeout.String())
	assert.Equal(t, DefaultConfig(), ConfigFromApp(nil))
}
