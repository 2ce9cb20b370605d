// Package memory owns conversation sessions, their turns and the lead
// contacts collected during a chat.
package memory

import (
	"context"

	"aivy-conversation/internal/models"
)

// Store is the durable session store. Implementations return
// *errors.StandardError values with SESSION_STORE_FAILED or
// SESSION_NOT_FOUND codes.
type Store interface {
	// GetOrCreateSession is an atomic insert-if-absent keyed by identifier.
	GetOrCreateSession(ctx context.Context, identifier string, userID *string) (string, error)
	GetSession(ctx context.Context, sessionID string) (*models.ConversationSession, error)
	// GetHistory returns up to limit turns, newest first.
	GetHistory(ctx context.Context, sessionID string, limit int) ([]models.ConversationTurn, error)
	AppendTurn(ctx context.Context, turn models.ConversationTurn) error
	CountTurns(ctx context.Context, sessionID string) (int, error)
	UpdateSessionState(ctx context.Context, sessionID string, profile models.ExecutiveProfile, state models.ConversationState) error
	HasContactInfo(ctx context.Context, sessionID string) (bool, error)
	CreateLeadContact(ctx context.Context, sessionID string, contact models.LeadContact) (string, error)
	// GetLeadContact returns nil, nil when the session has no contact.
	GetLeadContact(ctx context.Context, sessionID string) (*models.LeadContact, error)
}

// Analytics receives best-effort usage events.
type Analytics interface {
	Track(ctx context.Context, event models.AnalyticsEvent) error
}
