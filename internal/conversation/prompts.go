package conversation

import (
	"fmt"
	"strings"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

const (
	// maxMessageChars caps one message in a prompt transcript.
	maxMessageChars = 1000

	// endingTailMessages is how many final messages the ending prompt sees.
	endingTailMessages = 6

	systemPrompt = "You analyze customer support chat conversations between a user and a support bot. " +
		"Respond with a single JSON object matching the requested schema and nothing else."
)

// judgment identifies one of the five sub-analyses.
type judgment string

const (
	judgmentFirstRequest judgment = "first_request"
	judgmentFlow         judgment = "flow"
	judgmentEnding       judgment = "ending"
	judgmentImprovements judgment = "improvements"
	judgmentProblemTypes judgment = "problem_types"
)

// formatTranscript renders messages as "[User] ..." / "[Bot] ..." lines,
// truncating long messages and the whole transcript to maxChars.
func formatTranscript(msgs []models.ChatMessage, maxChars int) string {
	var b strings.Builder
	for _, m := range msgs {
		role := "Bot"
		if m.IsUser {
			role = "User"
		}
		content := strings.TrimSpace(m.Content)
		if r := []rune(content); len(r) > maxMessageChars {
			content = string(r[:maxMessageChars]) + "...[truncated]"
		}
		line := fmt.Sprintf("[%s] %s\n", role, content)
		if maxChars > 0 && b.Len()+len(line) > maxChars {
			b.WriteString("...[transcript truncated]\n")
			break
		}
		b.WriteString(line)
	}
	return b.String()
}

func firstRequestPrompt(s models.EnrichedSession, maxChars int) string {
	first := s.FirstQuery
	if first == "" {
		for _, m := range s.Messages {
			if m.IsUser {
				first = m.Content
				break
			}
		}
	}
	head := s.Messages
	if len(head) > 4 {
		head = head[:4]
	}
	return fmt.Sprintf(`Classify the user's first request in this support chat.

<first_request>
%s
</first_request>

<opening>
%s</opening>

Respond with JSON:
{
  "intent": "short lowercase phrase naming what the user wants, e.g. password reset",
  "category": "account|billing|technical|product|shipping|other",
  "urgency": "low|medium|high",
  "sentiment": "positive|neutral|negative",
  "clarity_score": 0-100,
  "needs_clarification": true|false
}`, first, formatTranscript(head, maxChars))
}

func flowPrompt(s models.EnrichedSession, maxChars int) string {
	return fmt.Sprintf(`Evaluate how this support chat progressed.

<transcript>
%s</transcript>

Respond with JSON:
{
  "topic_changes": number of times the user switched topic,
  "satisfaction_trend": "improving|stable|declining",
  "key_topics": ["up to 5 short topics"],
  "quality_score": 0-100,
  "misunderstandings": ["each place the bot misunderstood the user, one sentence each"]
}`, formatTranscript(s.Messages, maxChars))
}

func endingPrompt(s models.EnrichedSession, maxChars int) string {
	tail := s.Messages
	if len(tail) > endingTailMessages {
		tail = tail[len(tail)-endingTailMessages:]
	}
	return fmt.Sprintf(`Classify how this support chat ended. These are its final messages.

<final_messages>
%s</final_messages>

Respond with JSON:
{
  "ended_by": "user|bot|timeout",
  "resolution": "resolved|partially_resolved|unresolved|escalated",
  "final_sentiment": "positive|neutral|negative",
  "last_user_message": "the user's last message, verbatim",
  "reason": "one sentence on why the chat ended",
  "follow_up_needed": true|false
}`, formatTranscript(tail, maxChars))
}

func improvementsPrompt(s models.EnrichedSession, maxChars int) string {
	return fmt.Sprintf(`Suggest concrete improvements to the support bot based on this chat.

<transcript>
%s</transcript>

Respond with JSON:
{
  "improvements": [
    {
      "category": "knowledge|flow|tone|escalation|ui|other",
      "issue": "what went wrong, one sentence",
      "suggestion": "what the bot should do instead",
      "priority": "high|medium|low",
      "examples": ["short quotes from the transcript"]
    }
  ]
}
Return an empty list when the bot handled the chat well.`, formatTranscript(s.Messages, maxChars))
}

func problemTypesPrompt(s models.EnrichedSession, maxChars int) string {
	return fmt.Sprintf(`Tag the problems the user ran into in this support chat.

<transcript>
%s</transcript>

Respond with JSON:
{
  "problem_types": [
    {
      "type": "short snake_case tag, e.g. login_failure",
      "description": "one sentence",
      "severity": "low|medium|high",
      "examples": ["short quotes from the transcript"]
    }
  ]
}`, formatTranscript(s.Messages, maxChars))
}
