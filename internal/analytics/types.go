// Package analytics computes the quantitative aggregate over chat interaction logs.
package analytics

// =============================================================================
// Aggregate
// =============================================================================

// Analytics is the full quantitative aggregate for one set of interaction logs.
// Every slice is non-nil so the JSON form always carries arrays.
type Analytics struct {
	TotalConversations  int     `json:"total_conversations"`
	ActiveUsers         int     `json:"active_users"`
	ResolvedRate        float64 `json:"resolved_rate"`
	ErrorRate           float64 `json:"error_rate"`
	AverageDuration     float64 `json:"average_duration"` // seconds
	AverageRating       float64 `json:"average_rating"`
	AvgMessageLength    float64 `json:"avg_message_length"`
	MessagesPerSession  float64 `json:"messages_per_session"`
	SessionsWithActions int     `json:"sessions_with_actions"`

	TopCategories       []CategoryCount   `json:"top_categories"`
	HourlyDistribution  []HourCount       `json:"hourly_distribution"`
	DailyTrend          []DailyCount      `json:"daily_trend"`
	CommonIssues        []IssuePattern    `json:"common_issues"`
	Sentiment           SentimentSplit    `json:"sentiment"`
	ResponseTime        ResponseTimeStats `json:"response_time"`
	PlatformBreakdown   []KeyCount        `json:"platform_breakdown"`
	AppVersionBreakdown []KeyCount        `json:"app_version_breakdown"`
}

// =============================================================================
// Breakdown types
// =============================================================================

// CategoryCount is one entry of the top-categories breakdown.
type CategoryCount struct {
	Category   string  `json:"category"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// KeyCount is one entry of a platform or app-version breakdown.
type KeyCount struct {
	Key        string  `json:"key"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// HourCount is the number of interactions that started in one hour of the day.
type HourCount struct {
	Hour  int `json:"hour"` // 0-23
	Count int `json:"count"`
}

// DailyCount is one calendar day of the daily trend.
type DailyCount struct {
	Date     string `json:"date"` // YYYY-MM-DD
	Count    int    `json:"count"`
	Resolved int    `json:"resolved"`
	Errors   int    `json:"errors"`
}

// IssuePattern is a keyword from the common-issue dictionary and where it was seen.
type IssuePattern struct {
	Pattern   string   `json:"pattern"`
	Frequency int      `json:"frequency"`
	Examples  []string `json:"examples"`
}

// SentimentSplit holds the share of positive, neutral and negative user messages.
type SentimentSplit struct {
	Positive float64 `json:"positive"`
	Neutral  float64 `json:"neutral"`
	Negative float64 `json:"negative"`
}

// ResponseTimeStats summarizes bot response times in milliseconds.
type ResponseTimeStats struct {
	Average float64 `json:"average"`
	Median  int64   `json:"median"`
	P95     int64   `json:"p95"`
	P99     int64   `json:"p99"`
	Samples int     `json:"samples"`
}

const (
	topCategoriesLimit = 10
	topVersionsLimit   = 10
	topIssuesLimit     = 10
	dailyTrendDays     = 30
	maxIssueExamples   = 3
	issueExampleRunes  = 100
)
