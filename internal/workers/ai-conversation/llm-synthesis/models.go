package llmsynthesis

import "aivy-conversation/internal/models"

type Input struct {
	Question        string                  `json:"question"`
	SessionID       string                  `json:"sessionId,omitempty"`
	IntentAnalysis  models.IntentAnalysis   `json:"intentAnalysis"`
	KnowledgeChunks []models.KnowledgeChunk `json:"knowledgeChunks"`
}

type Output struct {
	Response    string `json:"response"`
	SourceCount int    `json:"sourceCount"`
}
