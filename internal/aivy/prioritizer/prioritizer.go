// Package prioritizer re-ranks retrieved knowledge chunks for an executive
// audience. Everything here is a pure function of its inputs.
package prioritizer

import (
	"math"
	"sort"
	"strings"

	"aivy-conversation/internal/aivy/keywords"
	"aivy-conversation/internal/models"
)

// ExecutiveContext is what a chunk is scored against.
type ExecutiveContext struct {
	Profile models.ExecutiveProfile
	State   models.ConversationState
	Intent  models.IntentAnalysis
}

// ScoredChunk is a chunk with the scores Prioritize ranked it by.
type ScoredChunk struct {
	models.KnowledgeChunk
	ExecutiveScore float64 `json:"executiveScore"`
	CombinedScore  float64 `json:"combinedScore"`
}

type Prioritizer struct {
	matcher *keywords.Matcher
}

func New(matcher *keywords.Matcher) *Prioritizer {
	if matcher == nil {
		matcher = keywords.Default()
	}
	return &Prioritizer{matcher: matcher}
}

var defaultPrioritizer = New(nil)

func Prioritize(chunks []models.KnowledgeChunk, ectx ExecutiveContext) []models.KnowledgeChunk {
	return defaultPrioritizer.Prioritize(chunks, ectx)
}

func ExecutiveScore(chunk models.KnowledgeChunk, ectx ExecutiveContext) float64 {
	return defaultPrioritizer.ExecutiveScore(chunk, ectx)
}

func FilterExecutiveAppropriate(chunks []models.KnowledgeChunk) []models.KnowledgeChunk {
	return defaultPrioritizer.FilterExecutiveAppropriate(chunks)
}

// Prioritize returns at most MaxResults chunks ordered by combined score.
func (p *Prioritizer) Prioritize(chunks []models.KnowledgeChunk, ectx ExecutiveContext) []models.KnowledgeChunk {
	ranked := p.Rank(chunks, ectx)
	if len(ranked) > MaxResults {
		ranked = ranked[:MaxResults]
	}
	out := make([]models.KnowledgeChunk, len(ranked))
	for i, sc := range ranked {
		out[i] = sc.KnowledgeChunk
	}
	return out
}

// Rank scores every chunk and sorts by combined score, highest first.
func (p *Prioritizer) Rank(chunks []models.KnowledgeChunk, ectx ExecutiveContext) []ScoredChunk {
	ranked := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		exec := p.ExecutiveScore(c, ectx)
		ranked = append(ranked, ScoredChunk{
			KnowledgeChunk: c,
			ExecutiveScore: exec,
			CombinedScore:  c.Similarity*SimilarityWeight + exec*ExecutiveWeight,
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CombinedScore > ranked[j].CombinedScore
	})
	return ranked
}

// ExecutiveScore sums keyword bonuses and penalties over the chunk content
// and clamps the result to [0, 1].
func (p *Prioritizer) ExecutiveScore(chunk models.KnowledgeChunk, ectx ExecutiveContext) float64 {
	content := strings.ToLower(chunk.Content)
	signals := ectx.Intent.ExecutiveContext

	score := 0.0
	score += StrategicWeight * float64(p.matcher.Count(content, StrategicKeywords))
	score += IntentWeight * float64(p.matcher.Count(content, IntentKeywords[ectx.Intent.PrimaryIntent]))

	if signals.Urgency == models.UrgencyHigh {
		score += UrgencyWeight * float64(p.matcher.Count(content, UrgencyKeywords))
	}
	score += StageWeight * float64(p.matcher.Count(content, StageKeywords[signals.DecisionStage]))

	switch ectx.Profile.InstitutionSize {
	case models.InstitutionLarge:
		if p.matcher.Contains(content, largeCampusPhrase) {
			score += LargeCampusBonus
		}
	case models.InstitutionSmall:
		if p.matcher.Contains(content, smallCampusPhrase) {
			score += SmallCampusBonus
		}
	}

	for _, topic := range ectx.State.DiscussedTopics {
		if p.matcher.Contains(content, strings.ToLower(topic)) {
			score += ContinuityWeight
		}
	}

	for _, focus := range ectx.Intent.StrategicFocus {
		score += FocusWeight * float64(p.matcher.Count(content, FocusKeywords[focus]))
	}

	score -= TechnicalPenalty * float64(p.matcher.Count(content, TechnicalKeywords))
	score += BusinessOutcomeWeight * float64(p.matcher.Count(content, BusinessOutcomeKeywords))

	return math.Max(0, math.Min(1, score))
}

// FilterExecutiveAppropriate drops chunks that are too technical or carry
// too little strategic language. Densities are count/words*100 compared
// against MaxTechnicalDensity and MinStrategicDensity as raw numbers.
func (p *Prioritizer) FilterExecutiveAppropriate(chunks []models.KnowledgeChunk) []models.KnowledgeChunk {
	out := make([]models.KnowledgeChunk, 0, len(chunks))
	for _, c := range chunks {
		content := strings.ToLower(c.Content)
		if p.density(content, DensityTechnicalTerms) > MaxTechnicalDensity {
			continue
		}
		if p.density(content, DensityStrategicTerms) < MinStrategicDensity {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (p *Prioritizer) density(content string, terms []string) float64 {
	words := len(strings.Fields(content))
	if words == 0 {
		return 0
	}
	return float64(p.matcher.Count(content, terms)) / float64(words) * 100
}
