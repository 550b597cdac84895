package analytics

import "github.com/ConfabulousDev/chat-insights/internal/models"

// ComputeAnalytics computes the aggregate for the logs in one pass. It is a
// pure function of its input: hourly and daily buckets use each log's own
// timestamp, never the wall clock. It never fails; empty input yields zero
// rates, empty breakdowns and 24 zero hourly buckets.
func ComputeAnalytics(logs []models.InteractionLog) *Analytics {
	out := &Analytics{}
	RunCollectors(logs, out,
		&OutcomeCollector{},
		NewSessionCollector(),
		NewBreakdownCollector(),
		NewTimeCollector(),
		NewIssueCollector(),
		&SentimentCollector{},
		&ResponseTimeCollector{},
	)
	return out
}

// ComputeFromSessions enriches and flattens the sessions, then computes the aggregate.
func ComputeFromSessions(sessions []models.ChatSession) *Analytics {
	return ComputeAnalytics(models.FlattenSessions(models.EnrichAll(sessions)))
}

// TopCategory returns the highest-ranked category, if any.
func (a *Analytics) TopCategory() (CategoryCount, bool) {
	if len(a.TopCategories) == 0 {
		return CategoryCount{}, false
	}
	return a.TopCategories[0], true
}

// TopIssue returns the most frequent issue pattern, if any.
func (a *Analytics) TopIssue() (IssuePattern, bool) {
	if len(a.CommonIssues) == 0 {
		return IssuePattern{}, false
	}
	return a.CommonIssues[0], true
}

// PeakHour returns the busiest hour, the first one in 0-23 order on ties.
func (a *Analytics) PeakHour() HourCount {
	var peak HourCount
	for i, h := range a.HourlyDistribution {
		if i == 0 || h.Count > peak.Count {
			peak = h
		}
	}
	return peak
}
