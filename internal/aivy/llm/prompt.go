package llm

import (
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"aivy-conversation/internal/models"
)

// HistoryTurns is how many past turns go into a prompt.
const HistoryTurns = 5

// ContextBundle is everything the generator needs for one reply. History is
// chronological.
type ContextBundle struct {
	Query   string
	Chunks  []models.KnowledgeChunk
	Profile models.ExecutiveProfile
	State   models.ConversationState
	Intent  models.IntentAnalysis
	History []models.ConversationTurn
}

const persona = `You are AIVY, a senior education technology advisor who talks with presidents, provosts, deans and other leaders of schools and universities.

Talk with them as a peer. Open with the insight that matters most for their role, keep the context short, and point to a sensible next step when one exists. Speak in terms of institutional outcomes and return on investment, not feature lists. Ask a clarifying question when their situation is unclear.

You represent FabriiQ, a School Operating System rather than a plain LMS. Its strengths are unified operations across campuses, AI decision support with predictive analytics, student lifecycle management from enrollment to graduation, automated finance with live reporting, and a pedagogical intelligence framework. Present it as a partnership, never as a hard sell.`

const reminder = "Answer as AIVY in 50 to 150 words: lead with the key insight, keep the tone conversational, and suggest a next step if it fits."

// BuildSystemPrompt renders the persona followed by the retrieved knowledge
// and what is known about the executive.
func BuildSystemPrompt(b ContextBundle) string {
	var sb strings.Builder
	sb.WriteString(persona)

	knowledge := renderKnowledge(b.Chunks)
	executive := renderExecutive(b)
	if knowledge != "" || executive != "" {
		sb.WriteString("\n\nRelevant information from the knowledge base:\n")
		sb.WriteString(knowledge)
		if knowledge != "" && executive != "" {
			sb.WriteString("\n\n")
		}
		sb.WriteString(executive)
	}
	return sb.String()
}

func renderKnowledge(chunks []models.KnowledgeChunk) string {
	parts := make([]string, 0, len(chunks))
	for i, c := range chunks {
		parts = append(parts, fmt.Sprintf("[Context %d (%.1f%% relevant)]\n%s", i+1, c.Similarity*100, c.Content))
	}
	return strings.Join(parts, "\n\n")
}

func renderExecutive(b ContextBundle) string {
	var lines []string
	if b.Profile.Role != "" {
		lines = append(lines, "Role: "+b.Profile.Role)
	}
	if b.Profile.InstitutionSize != "" {
		lines = append(lines, "Scale: "+string(b.Profile.InstitutionSize))
	}
	if b.State.EngagementLevel != "" {
		lines = append(lines, "Engagement: "+string(b.State.EngagementLevel))
	}
	if n := len(b.State.ExpressedChallenges); n > 0 {
		lines = append(lines, "Challenges: "+strings.Join(b.State.ExpressedChallenges[:min(n, 2)], ", "))
	}
	if b.Intent.PrimaryIntent != "" {
		lines = append(lines, fmt.Sprintf("Intent: %s (%.2f confidence)", b.Intent.PrimaryIntent, b.Intent.Confidence))
	}
	if b.Intent.ExecutiveContext.Urgency != "" {
		lines = append(lines, "Urgency: "+string(b.Intent.ExecutiveContext.Urgency))
	}
	if len(b.Intent.StrategicFocus) > 0 {
		lines = append(lines, "Strategic Focus: "+strings.Join(b.Intent.StrategicFocus, ", "))
	}
	if len(lines) == 0 {
		return ""
	}
	return "[Executive Context]\n" + strings.Join(lines, "\n")
}

// BuildMessages lays out the chat request: system prompt, the last
// HistoryTurns turns as alternating user and assistant messages, then the
// query with the brevity reminder.
func BuildMessages(b ContextBundle) []openai.ChatCompletionMessage {
	history := b.History
	if len(history) > HistoryTurns {
		history = history[len(history)-HistoryTurns:]
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2+2*len(history))
	msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: BuildSystemPrompt(b)})
	for _, turn := range history {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.UserQuery},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.ResponseContent},
		)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: b.Query + "\n\n" + reminder,
	})
	return msgs
}
