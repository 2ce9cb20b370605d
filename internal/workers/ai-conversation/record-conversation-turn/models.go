package recordconversationturn

import "aivy-conversation/internal/models"

type Input struct {
	SessionID       string                  `json:"sessionId"`
	Question        string                  `json:"question"`
	Response        string                  `json:"response"`
	IntentAnalysis  models.IntentAnalysis   `json:"intentAnalysis"`
	KnowledgeChunks []models.KnowledgeChunk `json:"knowledgeChunks"`
}

type Output struct {
	Recorded        bool                   `json:"recorded"`
	EngagementLevel models.EngagementLevel `json:"engagementLevel,omitempty"`
	ContactCaptured bool                   `json:"contactCaptured"`
}
