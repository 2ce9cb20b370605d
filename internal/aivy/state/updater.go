// Package state derives the next conversation state and executive profile
// after a completed turn.
package state

import (
	"regexp"
	"strings"

	"aivy-conversation/internal/aivy/keywords"
	"aivy-conversation/internal/models"
)

var (
	TopicCues       = []string{"topic", "subject", "about", "regarding", "concerning"}
	ChallengeCues   = []string{"challenge", "problem", "issue", "difficulty", "struggle", "pain point"}
	InstitutionKind = []string{"university", "college", "school", "institution", "organization"}

	LargeInstitutionCues = []string{"multi-campus", "multiple campus"}
	SelfDescriptionCues  = []string{"my institution", "we are"}
)

// InferredRole is assumed when a visitor describes their own institution
// before stating a role.
const InferredRole = "senior_administrator"

var sentencePattern = regexp.MustCompile(`[^.!?\n]+[.!?]*`)

// EngagementForTurnCount maps the number of completed turns to a level.
// The level is recomputed from the count every time.
func EngagementForTurnCount(turnCount int) models.EngagementLevel {
	switch {
	case turnCount <= 0:
		return models.EngagementInitial
	case turnCount < 3:
		return models.EngagementExploring
	case turnCount < 6:
		return models.EngagementEvaluating
	default:
		return models.EngagementDeciding
	}
}

type Updater struct {
	matcher *keywords.Matcher
}

func NewUpdater(matcher *keywords.Matcher) *Updater {
	if matcher == nil {
		matcher = keywords.Default()
	}
	return &Updater{matcher: matcher}
}

var defaultUpdater = NewUpdater(nil)

func Update(current models.ConversationState, profile models.ExecutiveProfile, intent models.IntentAnalysis, turnCount int, query string) (models.ConversationState, models.ExecutiveProfile) {
	return defaultUpdater.Update(current, profile, intent, turnCount, query)
}

// Update never removes topics, challenges or institution flags, and leaves
// DecisionCriteria untouched. The inputs are not modified.
func (u *Updater) Update(current models.ConversationState, profile models.ExecutiveProfile, intent models.IntentAnalysis, turnCount int, query string) (models.ConversationState, models.ExecutiveProfile) {
	next := current.Clone()
	next.EngagementLevel = EngagementForTurnCount(turnCount)

	topics, challenges := u.extractSentences(query)
	next.DiscussedTopics = models.UnionStrings(next.DiscussedTopics, topics)
	next.DiscussedTopics = models.UnionStrings(next.DiscussedTopics, intent.KeyTopics)
	next.ExpressedChallenges = models.UnionStrings(next.ExpressedChallenges, challenges)

	q := strings.ToLower(query)
	for _, kind := range InstitutionKind {
		if u.matcher.Contains(q, kind) {
			next.InstitutionContext[kind] = true
		}
	}

	return next, profile.Merge(u.inferProfile(q, profile))
}

func (u *Updater) extractSentences(query string) (topics, challenges []string) {
	for _, raw := range sentencePattern.FindAllString(query, -1) {
		sentence := strings.TrimSpace(raw)
		if sentence == "" {
			continue
		}
		lower := strings.ToLower(sentence)
		if u.matcher.Any(lower, TopicCues) {
			topics = append(topics, sentence)
		}
		if u.matcher.Any(lower, ChallengeCues) {
			challenges = append(challenges, sentence)
		}
	}
	return topics, challenges
}

func (u *Updater) inferProfile(q string, current models.ExecutiveProfile) models.ExecutiveProfile {
	var update models.ExecutiveProfile
	if u.matcher.Any(q, LargeInstitutionCues) {
		update.InstitutionSize = models.InstitutionLarge
	}
	if current.Role == "" && u.matcher.Any(q, SelfDescriptionCues) {
		update.Role = InferredRole
	}
	return update
}
