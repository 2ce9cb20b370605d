package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "aivy-conversation/internal/common/errors"
	"aivy-conversation/internal/models"
)

// InMemoryStore is a process-local Store used for the "memory" storage
// driver and in tests. It also implements Analytics.
type InMemoryStore struct {
	mu           sync.RWMutex
	byIdentifier map[string]string
	sessions     map[string]*models.ConversationSession
	turns        map[string][]models.ConversationTurn
	leads        map[string]models.LeadContact
	events       []models.AnalyticsEvent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		byIdentifier: make(map[string]string),
		sessions:     make(map[string]*models.ConversationSession),
		turns:        make(map[string][]models.ConversationTurn),
		leads:        make(map[string]models.LeadContact),
	}
}

func (s *InMemoryStore) GetOrCreateSession(_ context.Context, identifier string, userID *string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byIdentifier[identifier]; ok {
		if sess := s.sessions[id]; sess.UserID == nil && userID != nil {
			uid := *userID
			sess.UserID = &uid
		}
		return id, nil
	}

	now := time.Now().UTC()
	sess := &models.ConversationSession{
		ID:                uuid.NewString(),
		SessionIdentifier: identifier,
		ConversationState: models.DefaultConversationState(),
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if userID != nil {
		uid := *userID
		sess.UserID = &uid
	}
	s.byIdentifier[identifier] = sess.ID
	s.sessions[sess.ID] = sess
	return sess.ID, nil
}

func (s *InMemoryStore) GetSession(_ context.Context, sessionID string) (*models.ConversationSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, apperrors.NewSessionNotFoundError(sessionID)
	}
	out := *sess
	out.ExecutiveProfile = sess.ExecutiveProfile.Merge(models.ExecutiveProfile{})
	out.ConversationState = sess.ConversationState.Clone()
	return &out, nil
}

func (s *InMemoryStore) GetHistory(_ context.Context, sessionID string, limit int) ([]models.ConversationTurn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.turns[sessionID]
	out := []models.ConversationTurn{}
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}

func (s *InMemoryStore) AppendTurn(_ context.Context, turn models.ConversationTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[turn.SessionID]; !ok {
		return apperrors.NewSessionNotFoundError(turn.SessionID)
	}
	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	s.turns[turn.SessionID] = append(s.turns[turn.SessionID], turn)
	return nil
}

func (s *InMemoryStore) CountTurns(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns[sessionID]), nil
}

func (s *InMemoryStore) UpdateSessionState(_ context.Context, sessionID string, profile models.ExecutiveProfile, state models.ConversationState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return apperrors.NewSessionNotFoundError(sessionID)
	}
	sess.ExecutiveProfile = profile
	sess.ConversationState = state.Clone()
	sess.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *InMemoryStore) HasContactInfo(_ context.Context, sessionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.leads[sessionID]
	return ok, nil
}

func (s *InMemoryStore) CreateLeadContact(_ context.Context, sessionID string, contact models.LeadContact) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	contact.CreatedAt, contact.UpdatedAt = now, now
	if sessionID == "" {
		return contact.ID, nil
	}

	sid := sessionID
	contact.SessionID = &sid
	s.leads[sessionID] = contact
	if sess, ok := s.sessions[sessionID]; ok {
		id := contact.ID
		sess.LeadContactID = &id
	}
	return contact.ID, nil
}

func (s *InMemoryStore) GetLeadContact(_ context.Context, sessionID string) (*models.LeadContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.leads[sessionID]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *InMemoryStore) Track(_ context.Context, event models.AnalyticsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the tracked analytics events.
func (s *InMemoryStore) Events() []models.AnalyticsEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AnalyticsEvent(nil), s.events...)
}
