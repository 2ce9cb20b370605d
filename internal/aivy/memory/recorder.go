package memory

import (
	"context"
	"strings"

	"aivy-conversation/internal/aivy/state"
	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

// ComputeResponseMetrics derives the quality heuristics stored with a turn.
// The soft scores are 1 or 0.5, never 0.
func ComputeResponseMetrics(response string, intent models.IntentAnalysis) models.ResponseMetrics {
	words := len(strings.Fields(response))
	return models.ResponseMetrics{
		WordCount:            words,
		ExecutiveAppropriate: softScore(words >= 50 && words <= 200),
		ConversationalFlow:   softScore(strings.Contains(response, "?")),
		ActionOriented:       softScore(strings.Contains(response, "next step") || strings.Contains(response, "consider")),
		StrategicInsight:     softScore(len(intent.StrategicFocus) > 0),
	}
}

func softScore(ok bool) float64 {
	if ok {
		return 1
	}
	return 0.5
}

// Recorder persists completed turns and advances the session state.
type Recorder struct {
	store   Store
	updater *state.Updater
	logger  logger.Logger
}

func NewRecorder(store Store, updater *state.Updater, log logger.Logger) *Recorder {
	if updater == nil {
		updater = state.NewUpdater(nil)
	}
	return &Recorder{
		store:   store,
		updater: updater,
		logger:  logger.ForComponent(log, "turn-recorder"),
	}
}

// Record appends the turn, then recomputes and stores the session state.
// The state updater sees the number of turns before this one, so the first
// turn of a session leaves it at the initial engagement level.
func (r *Recorder) Record(ctx context.Context, sessionID, userQuery, response string, intent models.IntentAnalysis, sources []models.KnowledgeChunk) error {
	turn := models.ConversationTurn{
		SessionID:        sessionID,
		UserQuery:        userQuery,
		ResponseContent:  response,
		IntentAnalysis:   intent,
		KnowledgeSources: sources,
		ResponseMetrics:  ComputeResponseMetrics(response, intent),
	}
	if err := r.store.AppendTurn(ctx, turn); err != nil {
		return r.fail("append", err)
	}

	count, err := r.store.CountTurns(ctx, sessionID)
	if err != nil {
		return r.fail("count", err)
	}
	prior := count - 1
	if prior < 0 {
		prior = 0
	}

	sess, err := r.store.GetSession(ctx, sessionID)
	if err != nil {
		return r.fail("load_session", err)
	}

	nextState, nextProfile := r.updater.Update(sess.ConversationState, sess.ExecutiveProfile, intent, prior, userQuery)
	if err := r.store.UpdateSessionState(ctx, sessionID, nextProfile, nextState); err != nil {
		return r.fail("update_state", err)
	}

	metrics.TurnsRecorded.Inc()
	r.logger.Debug("turn recorded", map[string]interface{}{
		"sessionId":       sessionID,
		"engagementLevel": nextState.EngagementLevel,
		"turnCount":       count,
	})
	return nil
}

// RecordBestEffort runs Record and logs any failure instead of returning it.
// Callers use it after the reply has been delivered.
func (r *Recorder) RecordBestEffort(ctx context.Context, sessionID, userQuery, response string, intent models.IntentAnalysis, sources []models.KnowledgeChunk) {
	if err := r.Record(ctx, sessionID, userQuery, response, intent, sources); err != nil {
		r.logger.Error("failed to record conversation turn", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
}

func (r *Recorder) fail(stage string, err error) error {
	metrics.TurnRecordFailures.WithLabelValues(stage).Inc()
	return apperrors.NewTurnRecordError(stage, err)
}
