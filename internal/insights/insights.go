// Package insights turns an analytics aggregate into readable metrics, alerts,
// recommendations and trend prose.
package insights

import "github.com/ConfabulousDev/chat-insights/internal/analytics"

// Trend is the direction of a key metric relative to the previous period.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// Severity ranks an alert.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// KeyMetric is one headline number. Change and Trend are only set when a
// previous period was supplied.
type KeyMetric struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Trend  Trend  `json:"trend,omitempty"`
}

// Alert is a threshold rule that fired.
type Alert struct {
	Severity Severity `json:"severity"`
	Title    string   `json:"title"`
	Message  string   `json:"message"`
}

// Insights is derived entirely from one aggregate and an optional previous one.
type Insights struct {
	Period          string      `json:"period"`
	Summary         string      `json:"summary"`
	KeyMetrics      []KeyMetric `json:"key_metrics"`
	Alerts          []Alert     `json:"alerts"`
	Recommendations []string    `json:"recommendations"`
	Trends          string      `json:"trends"`
	Highlights      []string    `json:"highlights"`
}

// Synthesize builds insights for cur. prev may be nil, in which case key
// metrics carry no change or trend.
func Synthesize(cur, prev *analytics.Analytics) *Insights {
	if cur == nil {
		cur = analytics.ComputeAnalytics(nil)
	}
	return &Insights{
		Period:          period(cur),
		Summary:         summary(cur),
		KeyMetrics:      keyMetrics(cur, prev),
		Alerts:          alerts(cur),
		Recommendations: recommendations(cur),
		Trends:          trends(cur),
		Highlights:      highlights(cur),
	}
}
