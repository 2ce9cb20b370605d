package queryinternaldata

import "aivy-conversation/internal/models"

type Input struct {
	Question       string                 `json:"question"`
	SessionID      string                 `json:"sessionId,omitempty"`
	IntentAnalysis *models.IntentAnalysis `json:"intentAnalysis,omitempty"`
}

type Output struct {
	KnowledgeChunks []models.KnowledgeChunk `json:"knowledgeChunks"`
	ChunkCount      int                     `json:"chunkCount"`
	RetrievedCount  int                     `json:"retrievedCount"`
}
