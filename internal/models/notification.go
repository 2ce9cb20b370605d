// internal/models/notification.go
package models

import "time"

// LeadContact is contact information collected from a chat visitor.
// SessionID is a back-reference only.
type LeadContact struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Phone        string    `json:"phone" db:"phone"`
	Email        string    `json:"email,omitempty" db:"email"`
	Organization string    `json:"organization,omitempty" db:"organization"`
	Role         string    `json:"role,omitempty" db:"role"`
	SessionID    *string   `json:"sessionId,omitempty" db:"session_id"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

const (
	NotificationStatusSent     = "sent"
	NotificationStatusFailed   = "failed"
	NotificationStatusDisabled = "disabled"
)

// LeadNotification records one sales-team notification about a lead.
type LeadNotification struct {
	ID            string    `json:"id"`
	LeadContactID string    `json:"leadContactId"`
	Channels      []string  `json:"channels"` // "email", "sms"
	Status        string    `json:"status"`
	SentAt        time.Time `json:"sentAt"`
}

// AnalyticsEvent is a best-effort usage event.
type AnalyticsEvent struct {
	EventType string                 `json:"eventType"`
	UserID    *string                `json:"userId,omitempty"`
	SessionID string                 `json:"sessionId"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"createdAt"`
}
