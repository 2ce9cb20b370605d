package intent

import (
	"regexp"

	"aivy-conversation/internal/models"
)

// IntentRule maps a keyword set to a primary intent. Rules are evaluated in
// slice order and the first rule with any keyword present wins.
type IntentRule struct {
	Intent     models.PrimaryIntent
	Confidence float64
	Keywords   []string
}

// TagRule assigns Tag when any keyword is present. When Requires is set,
// at least one of those keywords must also be present. Pattern, if set, is
// an additional way to match the tag.
type TagRule struct {
	Tag      string
	Keywords []string
	Requires []string
	Pattern  *regexp.Regexp
}

type StageRule struct {
	Stage    models.DecisionStage
	Keywords []string
}

const DefaultConfidence = 0.70

var IntentRules = []IntentRule{
	{
		Intent:     models.IntentDecisionSupport,
		Confidence: 0.85,
		Keywords:   []string{"roi", "cost", "budget", "implementation", "timeline", "decision", "evaluate"},
	},
	{
		Intent:     models.IntentProblemSolving,
		Confidence: 0.80,
		Keywords:   []string{"challenge", "problem", "struggling", "difficult", "issue", "solution"},
	},
	{
		Intent:     models.IntentRelationshipBuilding,
		Confidence: 0.75,
		Keywords:   []string{"partner", "work together", "collaboration", "next step", "meeting", "demo"},
	},
}

var (
	HighUrgencyKeywords = []string{"urgent", "immediate", "asap", "quickly"}
	LowUrgencyKeywords  = []string{"future", "eventually", "planning", "considering"}
)

var StageRules = []StageRule{
	{Stage: models.StageEvaluation, Keywords: []string{"compare", "vs", "alternative", "option"}},
	{Stage: models.StageConsideration, Keywords: []string{"how", "implementation", "process", "step"}},
	{Stage: models.StageDecision, Keywords: []string{"approve", "buy", "purchase", "contract"}},
}

// Role fragments are matched against the lower-cased profile role.
var (
	BudgetHolderRoles  = []string{"president", "ceo", "chancellor"}
	DecisionMakerRoles = []string{"director", "dean"}
	BudgetLanguage     = []string{"budget", "funding"}
)

// countedCampuses catches phrasings like "10-campus" or "three campuses".
var countedCampuses = regexp.MustCompile(`\b(\d+|two|three|four|five|six|seven|eight|nine|ten|several|many)[- ]campus`)

var TopicRules = []TagRule{
	{Tag: "enrollment", Keywords: []string{"enrollment", "student registration", "admission"}},
	{Tag: "financial", Keywords: []string{"financial", "fee", "tuition", "payment", "billing"}},
	{Tag: "academic", Keywords: []string{"academic", "curriculum", "course", "grading", "assessment"}},
	{Tag: "analytics", Keywords: []string{"analytics", "reporting", "data", "insights", "metrics"}},
	{Tag: "communication", Keywords: []string{"communication", "notification", "messaging", "engagement"}},
	{Tag: "multi-campus", Keywords: []string{"multi-campus", "multiple campus", "branch", "location"}, Pattern: countedCampuses},
	{Tag: "ai", Keywords: []string{"ai", "artificial intelligence", "automation", "intelligent"}},
}

var FocusRules = []TagRule{
	{Tag: "scalability", Keywords: []string{"scale", "growth", "expansion"}},
	{Tag: "operational_efficiency", Keywords: []string{"efficiency", "streamline", "optimize"}},
	{Tag: "student_success", Keywords: []string{"success", "outcome"}, Requires: []string{"student"}},
	{Tag: "competitive_advantage", Keywords: []string{"competitive", "advantage", "differentiate"}},
}
