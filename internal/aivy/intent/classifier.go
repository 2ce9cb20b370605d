// Package intent classifies a visitor query into an executive intent using
// the keyword tables in tables.go. Classification does no I/O and is
// deterministic for a given query and session context.
package intent

import (
	"strings"

	"aivy-conversation/internal/aivy/keywords"
	"aivy-conversation/internal/models"
)

type Classifier struct {
	matcher *keywords.Matcher
}

func NewClassifier(matcher *keywords.Matcher) *Classifier {
	if matcher == nil {
		matcher = keywords.Default()
	}
	return &Classifier{matcher: matcher}
}

var defaultClassifier = NewClassifier(nil)

// Classify uses substring matching.
func Classify(query string, sctx models.SessionContext) models.IntentAnalysis {
	return defaultClassifier.Classify(query, sctx)
}

// AuthorityForRole is the authority level a declared role implies on its own.
func AuthorityForRole(role string) models.AuthorityLevel {
	return defaultClassifier.authority("", role)
}

func (c *Classifier) Classify(query string, sctx models.SessionContext) models.IntentAnalysis {
	q := strings.ToLower(query)

	primary, confidence := c.primaryIntent(q)

	return models.IntentAnalysis{
		PrimaryIntent: primary,
		Confidence:    confidence,
		ExecutiveContext: models.ExecutiveSignals{
			Urgency:        c.urgency(q),
			DecisionStage:  c.decisionStage(q),
			AuthorityLevel: c.authority(q, sctx.ExecutiveProfile.Role),
		},
		KeyTopics:      c.tags(q, TopicRules),
		StrategicFocus: c.tags(q, FocusRules),
	}
}

func (c *Classifier) primaryIntent(q string) (models.PrimaryIntent, float64) {
	for _, rule := range IntentRules {
		if c.matcher.Any(q, rule.Keywords) {
			return rule.Intent, rule.Confidence
		}
	}
	return models.IntentInformationSeeking, DefaultConfidence
}

func (c *Classifier) urgency(q string) models.Urgency {
	switch {
	case c.matcher.Any(q, HighUrgencyKeywords):
		return models.UrgencyHigh
	case c.matcher.Any(q, LowUrgencyKeywords):
		return models.UrgencyLow
	default:
		return models.UrgencyMedium
	}
}

func (c *Classifier) decisionStage(q string) models.DecisionStage {
	for _, rule := range StageRules {
		if c.matcher.Any(q, rule.Keywords) {
			return rule.Stage
		}
	}
	return models.StageAwareness
}

// authority is driven by the declared role first, so it stays stable for
// the rest of a session once the role is known.
func (c *Classifier) authority(q, role string) models.AuthorityLevel {
	role = strings.ToLower(role)
	switch {
	case role != "" && containsAny(role, BudgetHolderRoles):
		return models.AuthorityBudgetHolder
	case role != "" && containsAny(role, DecisionMakerRoles):
		return models.AuthorityDecisionMaker
	case c.matcher.Any(q, BudgetLanguage):
		return models.AuthorityDecisionMaker
	default:
		return models.AuthorityInfluencer
	}
}

func (c *Classifier) tags(q string, rules []TagRule) []string {
	out := []string{}
	for _, rule := range rules {
		if len(rule.Requires) > 0 && !c.matcher.Any(q, rule.Requires) {
			continue
		}
		if c.matcher.Any(q, rule.Keywords) || (rule.Pattern != nil && rule.Pattern.MatchString(q)) {
			out = append(out, rule.Tag)
		}
	}
	return out
}

// Role titles are compared by containment regardless of matching mode:
// "Vice President" and "CEO & Founder" both qualify.
func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
