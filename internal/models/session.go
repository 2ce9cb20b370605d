package models

import "time"

// EngagementLevel is the ordered depth of a conversation.
type EngagementLevel string

const (
	EngagementInitial    EngagementLevel = "initial"
	EngagementExploring  EngagementLevel = "exploring"
	EngagementEvaluating EngagementLevel = "evaluating"
	EngagementDeciding   EngagementLevel = "deciding"
)

type InstitutionSize string

const (
	InstitutionSmall  InstitutionSize = "small"
	InstitutionMedium InstitutionSize = "medium"
	InstitutionLarge  InstitutionSize = "large"
)

// ConversationSession is one visitor conversation keyed by SessionIdentifier.
type ConversationSession struct {
	ID                string            `json:"id" db:"id"`
	SessionIdentifier string            `json:"sessionIdentifier" db:"session_identifier"`
	UserID            *string           `json:"userId,omitempty" db:"user_id"`
	ExecutiveProfile  ExecutiveProfile  `json:"executiveProfile" db:"executive_profile"`
	ConversationState ConversationState `json:"conversationState" db:"conversation_state"`
	LeadContactID     *string           `json:"leadContactId,omitempty" db:"lead_contact_id"`
	CreatedAt         time.Time         `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time         `json:"updatedAt" db:"updated_at"`
}

// ExecutiveProfile holds attributes inferred about the person chatting.
type ExecutiveProfile struct {
	InstitutionSize InstitutionSize   `json:"institutionSize,omitempty"`
	Role            string            `json:"role,omitempty"`
	FocusAreas      []string          `json:"focusAreas,omitempty"`
	Preferences     map[string]string `json:"preferences,omitempty"`
}

// Merge returns p updated with the non-empty fields of update. Focus areas
// are unioned and preferences merged key by key, so nothing already known
// is dropped.
func (p ExecutiveProfile) Merge(update ExecutiveProfile) ExecutiveProfile {
	out := ExecutiveProfile{
		InstitutionSize: p.InstitutionSize,
		Role:            p.Role,
		FocusAreas:      UnionStrings(p.FocusAreas, update.FocusAreas),
	}
	if update.InstitutionSize != "" {
		out.InstitutionSize = update.InstitutionSize
	}
	if update.Role != "" {
		out.Role = update.Role
	}
	if len(p.Preferences) > 0 || len(update.Preferences) > 0 {
		out.Preferences = make(map[string]string, len(p.Preferences)+len(update.Preferences))
		for k, v := range p.Preferences {
			out.Preferences[k] = v
		}
		for k, v := range update.Preferences {
			out.Preferences[k] = v
		}
	}
	return out
}

// ConversationState is the accumulated session memory.
type ConversationState struct {
	EngagementLevel     EngagementLevel   `json:"engagementLevel"`
	DiscussedTopics     []string          `json:"discussedTopics"`
	ExpressedChallenges []string          `json:"expressedChallenges"`
	DecisionCriteria    []string          `json:"decisionCriteria"`
	InstitutionContext  map[string]bool   `json:"institutionContext"`
	Context             map[string]string `json:"context,omitempty"`
}

func DefaultConversationState() ConversationState {
	return ConversationState{
		EngagementLevel:     EngagementInitial,
		DiscussedTopics:     []string{},
		ExpressedChallenges: []string{},
		DecisionCriteria:    []string{},
		InstitutionContext:  map[string]bool{},
	}
}

// Clone returns a deep copy so callers can derive a next state without
// aliasing the current one.
func (s ConversationState) Clone() ConversationState {
	out := ConversationState{
		EngagementLevel:     s.EngagementLevel,
		DiscussedTopics:     append([]string{}, s.DiscussedTopics...),
		ExpressedChallenges: append([]string{}, s.ExpressedChallenges...),
		DecisionCriteria:    append([]string{}, s.DecisionCriteria...),
		InstitutionContext:  make(map[string]bool, len(s.InstitutionContext)),
	}
	if out.EngagementLevel == "" {
		out.EngagementLevel = EngagementInitial
	}
	for k, v := range s.InstitutionContext {
		out.InstitutionContext[k] = v
	}
	if s.Context != nil {
		out.Context = make(map[string]string, len(s.Context))
		for k, v := range s.Context {
			out.Context[k] = v
		}
	}
	return out
}

// SessionContext is what the classifier and prioritizer see of a session.
// RecentHistory is chronological, oldest first.
type SessionContext struct {
	ExecutiveProfile  ExecutiveProfile   `json:"executiveProfile"`
	ConversationState ConversationState  `json:"conversationState"`
	RecentHistory     []ConversationTurn `json:"recentHistory"`
}

func DefaultSessionContext() SessionContext {
	return SessionContext{
		ConversationState: DefaultConversationState(),
		RecentHistory:     []ConversationTurn{},
	}
}

// UnionStrings appends the values of add missing from base, keeping order.
func UnionStrings(base, add []string) []string {
	out := make([]string, 0, len(base)+len(add))
	seen := make(map[string]struct{}, len(base)+len(add))
	for _, list := range [][]string{base, add} {
		for _, v := range list {
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}
