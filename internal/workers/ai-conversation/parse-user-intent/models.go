package parseuserintent

import "aivy-conversation/internal/models"

type Input struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId,omitempty"`
}

type Output struct {
	IntentAnalysis models.IntentAnalysis `json:"intentAnalysis"`
	SessionID      string                `json:"sessionId,omitempty"`
}
