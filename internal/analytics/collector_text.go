package analytics

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// IssueKeywords is the dictionary tested against every user message.
var IssueKeywords = []string{
	"error", "broken", "not working", "doesn't work", "crash", "bug",
	"timeout", "slow", "login", "password", "payment", "refund",
	"cancel", "account", "failed", "problem", "issue", "help",
}

var positiveWords = map[string]bool{
	"thanks": true, "thank": true, "great": true, "good": true, "perfect": true,
	"awesome": true, "excellent": true, "helpful": true, "love": true, "solved": true,
	"works": true, "nice": true, "amazing": true, "appreciate": true,
}

var negativeWords = map[string]bool{
	"bad": true, "terrible": true, "awful": true, "useless": true, "hate": true,
	"wrong": true, "broken": true, "annoying": true, "frustrated": true, "angry": true,
	"worst": true, "disappointed": true, "horrible": true, "stupid": true,
}

// IssueCollector counts dictionary keyword hits with up to three examples each.
type IssueCollector struct {
	freq     []int
	examples [][]string
}

func NewIssueCollector() *IssueCollector {
	return &IssueCollector{
		freq:     make([]int, len(IssueKeywords)),
		examples: make([][]string, len(IssueKeywords)),
	}
}

func (c *IssueCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	msg := strings.ToLower(log.UserMessage)
	if msg == "" {
		return
	}
	for i, kw := range IssueKeywords {
		if !strings.Contains(msg, kw) {
			continue
		}
		c.freq[i]++
		if len(c.examples[i]) < maxIssueExamples {
			c.examples[i] = append(c.examples[i], truncateRunes(log.UserMessage, issueExampleRunes))
		}
	}
}

func (c *IssueCollector) Finalize(_ *CollectContext, out *Analytics) {
	issues := make([]IssuePattern, 0)
	for i, kw := range IssueKeywords {
		if c.freq[i] == 0 {
			continue
		}
		issues = append(issues, IssuePattern{Pattern: kw, Frequency: c.freq[i], Examples: c.examples[i]})
	}
	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Frequency > issues[j].Frequency })
	if len(issues) > topIssuesLimit {
		issues = issues[:topIssuesLimit]
	}
	out.CommonIssues = issues
}

// SentimentCollector scores each user message +1 per positive word and -1 per
// negative word and classifies it by the sign of the score.
type SentimentCollector struct {
	positive, neutral, negative int
}

func (c *SentimentCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	switch score := SentimentScore(log.UserMessage); {
	case score > 0:
		c.positive++
	case score < 0:
		c.negative++
	default:
		c.neutral++
	}
}

func (c *SentimentCollector) Finalize(ctx *CollectContext, out *Analytics) {
	if ctx.Total == 0 {
		out.Sentiment = SentimentSplit{}
		return
	}
	total := max(c.positive+c.neutral+c.negative, 1)
	out.Sentiment = SentimentSplit{
		Positive: percentOf(c.positive, total),
		Neutral:  percentOf(c.neutral, total),
		Negative: percentOf(c.negative, total),
	}
}

// SentimentScore returns the word-list score of a message.
func SentimentScore(msg string) int {
	score := 0
	words := strings.FieldsFunc(strings.ToLower(msg), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
	for _, w := range words {
		if positiveWords[w] {
			score++
		}
		if negativeWords[w] {
			score--
		}
	}
	return score
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
