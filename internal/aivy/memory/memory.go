package memory

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"golang.org/x/sync/singleflight"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/models"
)

const DefaultHistoryLimit = 5

var userIDPattern = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[1-5][0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// CoerceUserID returns nil unless raw is a canonical UUID (versions 1-5).
func CoerceUserID(raw string) *string {
	if !userIDPattern.MatchString(raw) {
		return nil
	}
	return &raw
}

// GenerateSessionIdentifier returns an identifier for an anonymous visitor.
func GenerateSessionIdentifier() string {
	return fmt.Sprintf("anonymous_%d_%s", time.Now().UnixMilli(), shortuuid.New())
}

// Memory is the session API used by the chat pipeline and the workers.
// Methods returning error expose storage failures; ContextOrDefault,
// HasContactInfo and CreateLeadContact apply the log-and-continue policy.
type Memory struct {
	store        Store
	historyLimit int
	group        singleflight.Group
	logger       logger.Logger
}

func New(store Store, historyLimit int, log logger.Logger) *Memory {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Memory{
		store:        store,
		historyLimit: historyLimit,
		logger:       logger.ForComponent(log, "conversation-memory"),
	}
}

func (m *Memory) Store() Store { return m.store }

// GetOrCreateSession returns the session for identifier, creating it on
// first contact. Concurrent calls for one identifier share a single store
// round trip.
func (m *Memory) GetOrCreateSession(ctx context.Context, identifier, rawUserID string) (string, error) {
	if identifier == "" {
		return "", apperrors.NewInvalidRequestError("session identifier is required")
	}
	userID := CoerceUserID(rawUserID)

	v, err, _ := m.group.Do(identifier, func() (interface{}, error) {
		return m.store.GetOrCreateSession(ctx, identifier, userID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// GetSessionContext loads profile, state and recent history. History is
// returned oldest first; a failed history read yields an empty history.
func (m *Memory) GetSessionContext(ctx context.Context, sessionID string) (models.SessionContext, error) {
	sess, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return models.SessionContext{}, err
	}

	history, err := m.store.GetHistory(ctx, sessionID, m.historyLimit)
	if err != nil {
		m.logger.Warn("history unavailable", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		history = []models.ConversationTurn{}
	}

	return models.SessionContext{
		ExecutiveProfile:  sess.ExecutiveProfile,
		ConversationState: sess.ConversationState.Clone(),
		RecentHistory:     chronological(history),
	}, nil
}

// ContextOrDefault is GetSessionContext with the degraded-read policy: any
// failure yields the default context so the reply can still be produced.
func (m *Memory) ContextOrDefault(ctx context.Context, sessionID string) models.SessionContext {
	sctx, err := m.GetSessionContext(ctx, sessionID)
	if err != nil {
		m.logger.Warn("using default session context", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return models.DefaultSessionContext()
	}
	return sctx
}

// GetHistory returns the stored turns newest first.
func (m *Memory) GetHistory(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	return m.store.GetHistory(ctx, sessionID, limit)
}

func (m *Memory) UpdateSessionState(ctx context.Context, sessionID string, profile models.ExecutiveProfile, state models.ConversationState) error {
	return m.store.UpdateSessionState(ctx, sessionID, profile, state)
}

func (m *Memory) HasContactInfo(ctx context.Context, sessionID string) bool {
	ok, err := m.store.HasContactInfo(ctx, sessionID)
	if err != nil {
		m.logger.Warn("contact lookup failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return false
	}
	return ok
}

func (m *Memory) CreateLeadContact(ctx context.Context, sessionID string, contact models.LeadContact) (string, bool) {
	id, err := m.store.CreateLeadContact(ctx, sessionID, contact)
	if err != nil {
		m.logger.Error("failed to create lead contact", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
		return "", false
	}
	m.logger.Info("lead contact created", map[string]interface{}{
		"sessionId": sessionID,
		"contactId": id,
	})
	return id, true
}

func (m *Memory) GetLeadContact(ctx context.Context, sessionID string) (*models.LeadContact, error) {
	return m.store.GetLeadContact(ctx, sessionID)
}

func chronological(newestFirst []models.ConversationTurn) []models.ConversationTurn {
	out := make([]models.ConversationTurn, len(newestFirst))
	for i, t := range newestFirst {
		out[len(newestFirst)-1-i] = t
	}
	return out
}
