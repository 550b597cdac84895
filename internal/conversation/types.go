// Package conversation runs per-session qualitative analysis through a
// completion service and merges many analyses into one report.
package conversation

import (
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
)

// FirstRequest classifies the user's opening request.
type FirstRequest struct {
	Intent             string `json:"intent"`
	Category           string `json:"category"`
	Urgency            string `json:"urgency"`
	Sentiment          string `json:"sentiment"`
	ClarityScore       int    `json:"clarity_score"` // 0-100
	NeedsClarification bool   `json:"needs_clarification"`
}

// Flow judges how the conversation progressed.
type Flow struct {
	TotalMessages     int      `json:"total_messages"`
	UserMessages      int      `json:"user_messages"`
	BotMessages       int      `json:"bot_messages"`
	TopicChanges      int      `json:"topic_changes"`
	SatisfactionTrend string   `json:"satisfaction_trend"`
	KeyTopics         []string `json:"key_topics"`
	QualityScore      int      `json:"quality_score"` // 0-100
	Misunderstandings []string `json:"misunderstandings"`
}

// Ending classifies how the conversation ended.
type Ending struct {
	EndedBy         string `json:"ended_by"`
	Resolution      string `json:"resolution"`
	FinalSentiment  string `json:"final_sentiment"`
	LastUserMessage string `json:"last_user_message"`
	Reason          string `json:"reason"`
	FollowUpNeeded  bool   `json:"follow_up_needed"`
}

// Improvement is a suggested change to the bot.
type Improvement struct {
	Category   string   `json:"category"`
	Issue      string   `json:"issue"`
	Suggestion string   `json:"suggestion"`
	Priority   string   `json:"priority"` // high, medium or low
	Examples   []string `json:"examples"`
}

// ProblemType tags a kind of problem the user ran into.
type ProblemType struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Examples    []string `json:"examples"`
}

// Analysis is the qualitative judgment of one session. It is produced once
// and only read afterwards.
type Analysis struct {
	SessionID    string          `json:"session_id"`
	AnalyzedAt   time.Time       `json:"analyzed_at"`
	Model        string          `json:"model"`
	FirstRequest FirstRequest    `json:"first_request"`
	Flow         Flow            `json:"flow"`
	Ending       Ending          `json:"ending"`
	Improvements []Improvement   `json:"improvements"`
	ProblemTypes []ProblemType   `json:"problem_types"`
	Usage        anthropic.Usage `json:"usage"`
}
