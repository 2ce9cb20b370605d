package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"aivy-conversation/internal/models"
)

const EventChatMessage = "chat_message"

type PostgresAnalytics struct {
	db *sql.DB
}

func NewPostgresAnalytics(db *sql.DB) *PostgresAnalytics {
	return &PostgresAnalytics{db: db}
}

func (a *PostgresAnalytics) Track(ctx context.Context, event models.AnalyticsEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	metadata, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("encode analytics metadata: %w", err)
	}
	_, err = a.db.ExecContext(ctx,
		`INSERT INTO ai_analytics (event_type, user_id, session_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		event.EventType, event.UserID, event.SessionID, string(metadata), event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// ChatMessageEvent builds the analytics event emitted after each chat reply.
func ChatMessageEvent(sessionID string, userID *string, message, response string, at time.Time) models.AnalyticsEvent {
	return models.AnalyticsEvent{
		EventType: EventChatMessage,
		UserID:    userID,
		SessionID: sessionID,
		Metadata: map[string]interface{}{
			"message_length":  len(message),
			"response_length": len(response),
			"timestamp":       at.UTC().Format(time.RFC3339),
		},
		CreatedAt: at.UTC(),
	}
}
