package models

import "time"

type PrimaryIntent string

const (
	IntentDecisionSupport      PrimaryIntent = "decision_support"
	IntentProblemSolving       PrimaryIntent = "problem_solving"
	IntentRelationshipBuilding PrimaryIntent = "relationship_building"
	IntentInformationSeeking   PrimaryIntent = "information_seeking"
)

type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

type DecisionStage string

const (
	StageAwareness     DecisionStage = "awareness"
	StageConsideration DecisionStage = "consideration"
	StageEvaluation    DecisionStage = "evaluation"
	StageDecision      DecisionStage = "decision"
)

type AuthorityLevel string

const (
	AuthorityInfluencer    AuthorityLevel = "influencer"
	AuthorityDecisionMaker AuthorityLevel = "decision_maker"
	AuthorityBudgetHolder  AuthorityLevel = "budget_holder"
)

type ExecutiveSignals struct {
	Urgency        Urgency        `json:"urgency"`
	DecisionStage  DecisionStage  `json:"decisionStage"`
	AuthorityLevel AuthorityLevel `json:"authorityLevel"`
}

// IntentAnalysis is the classification of one user query.
type IntentAnalysis struct {
	PrimaryIntent    PrimaryIntent    `json:"primaryIntent"`
	Confidence       float64          `json:"confidence"`
	ExecutiveContext ExecutiveSignals `json:"executiveContext"`
	KeyTopics        []string         `json:"keyTopics"`
	StrategicFocus   []string         `json:"strategicFocus"`
}

// KnowledgeChunk is a retrieved passage with its upstream similarity.
type KnowledgeChunk struct {
	Content    string                 `json:"content"`
	Similarity float64                `json:"similarity"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

type ResponseMetrics struct {
	WordCount            int     `json:"wordCount"`
	ExecutiveAppropriate float64 `json:"executiveAppropriate"`
	ConversationalFlow   float64 `json:"conversationalFlow"`
	ActionOriented       float64 `json:"actionOriented"`
	StrategicInsight     float64 `json:"strategicInsight"`
}

// ConversationTurn is immutable once written.
type ConversationTurn struct {
	ID               string           `json:"id" db:"id"`
	SessionID        string           `json:"sessionId" db:"session_id"`
	UserQuery        string           `json:"userQuery" db:"user_query"`
	ResponseContent  string           `json:"responseContent" db:"response_content"`
	IntentAnalysis   IntentAnalysis   `json:"intentAnalysis" db:"intent_analysis"`
	KnowledgeSources []KnowledgeChunk `json:"knowledgeSources" db:"knowledge_sources"`
	ResponseMetrics  ResponseMetrics  `json:"responseMetrics" db:"response_metrics"`
	CreatedAt        time.Time        `json:"createdAt" db:"created_at"`
}
