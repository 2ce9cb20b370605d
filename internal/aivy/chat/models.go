package chat

import (
	"time"

	"aivy-conversation/internal/models"
)

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversationId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}

type ChatResponse struct {
	Response        string    `json:"response"`
	ConversationID  string    `json:"conversationId"`
	SessionID       string    `json:"sessionId,omitempty"`
	Intent          string    `json:"intent"`
	Sources         int       `json:"sources"`
	ContactCaptured bool      `json:"contactCaptured"`
	Timestamp       time.Time `json:"timestamp"`
}

type ContactInfo struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Organization string `json:"organization,omitempty"`
	Role         string `json:"role,omitempty"`
}

func (c ContactInfo) toLeadContact() models.LeadContact {
	return models.LeadContact{
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		Organization: c.Organization,
		Role:         c.Role,
	}
}

type LeadRequest struct {
	ContactInfo    ContactInfo `json:"contactInfo"`
	ConversationID string      `json:"conversationId,omitempty"`
	UserID         string      `json:"userId,omitempty"`
}

type LeadResponse struct {
	Success            bool   `json:"success"`
	ContactID          string `json:"contactId"`
	SessionID          string `json:"sessionId"`
	ConversationID     string `json:"conversationId"`
	ProcessInstanceKey int64  `json:"processInstanceKey,omitempty"`
	Message            string `json:"message"`
}

type HistoryResponse struct {
	SessionID string                    `json:"sessionId"`
	Turns     []models.ConversationTurn `json:"turns"`
}
