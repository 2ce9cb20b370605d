package prioritizer

import "aivy-conversation/internal/models"

// Score weights. Each is added once per matched keyword.
const (
	StrategicWeight       = 0.15
	IntentWeight          = 0.12
	UrgencyWeight         = 0.10
	StageWeight           = 0.08
	LargeCampusBonus      = 0.10
	SmallCampusBonus      = 0.08
	ContinuityWeight      = 0.05
	FocusWeight           = 0.07
	TechnicalPenalty      = 0.05
	BusinessOutcomeWeight = 0.08

	SimilarityWeight = 0.6
	ExecutiveWeight  = 0.4
	MaxResults       = 5

	// Filter thresholds compare against count/words*100.
	MaxTechnicalDensity = 0.3
	MinStrategicDensity = 0.1
)

var StrategicKeywords = []string{
	"strategic", "leadership", "executive", "decision", "roi", "business case",
	"competitive advantage", "market position", "institutional excellence",
	"transformation", "innovation", "scalability", "growth", "efficiency",
}

var IntentKeywords = map[models.PrimaryIntent][]string{
	models.IntentDecisionSupport:      {"implementation", "cost", "timeline", "resource", "risk", "benefit"},
	models.IntentProblemSolving:       {"solution", "challenge", "problem", "resolve", "address", "overcome"},
	models.IntentRelationshipBuilding: {"partnership", "collaboration", "support", "service", "relationship"},
}

var UrgencyKeywords = []string{"immediate", "quick", "fast", "rapid", "urgent"}

var StageKeywords = map[models.DecisionStage][]string{
	models.StageEvaluation: {"comparison", "vs", "alternative", "option", "evaluate"},
	models.StageDecision:   {"pricing", "contract", "agreement", "implementation", "onboarding"},
}

var FocusKeywords = map[string][]string{
	"scalability":            {"scale", "growth", "expansion", "multiple", "campus"},
	"operational_efficiency": {"efficiency", "streamline", "optimize", "automate"},
	"student_success":        {"student success", "outcomes", "achievement", "performance"},
	"competitive_advantage":  {"competitive", "advantage", "differentiate", "unique"},
}

var TechnicalKeywords = []string{
	"api", "database", "server", "configuration", "technical implementation",
	"code", "developer", "programming", "debugging",
}

var BusinessOutcomeKeywords = []string{
	"result", "outcome", "impact", "benefit", "value", "return",
	"improvement", "success", "achievement", "performance", "metric",
}

const (
	largeCampusPhrase = "multi-campus"
	smallCampusPhrase = "single campus"
)

// Term lists used by FilterExecutiveAppropriate.
var (
	DensityTechnicalTerms = []string{
		"api", "json", "http", "sql", "database schema", "server",
		"configuration file", "deployment", "debugging", "code",
		"function", "variable", "parameter",
	}
	DensityStrategicTerms = []string{
		"strategic", "business", "institutional", "leadership", "decision",
		"value", "benefit", "outcome", "impact", "advantage", "success",
	}
)
