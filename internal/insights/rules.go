package insights

import (
	"fmt"
	"strings"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
)

// Alert thresholds.
const (
	alertErrorRate      = 10.0
	alertResolvedRate   = 60.0
	alertRating         = 3.0
	alertNegative       = 30.0
	alertP95Ms          = 5000
	alertPeakHourShare  = 15.0
	recErrorRate        = 5.0
	recResolvedRate     = 70.0
	recNegative         = 25.0
	recHourShare        = 10.0
	recCategoryShare    = 30.0
	recDurationSeconds  = 600.0
	highlightResolved   = 80.0
	highlightRating     = 4.0
	highlightErrorRate  = 2.0
	highlightPositive   = 60.0
	highlightMedianMsLt = 1000
)

// Rate-based rules are skipped when there were no conversations: an empty
// period has no resolution rate worth alerting on.
func alerts(a *analytics.Analytics) []Alert {
	out := []Alert{}

	if a.ErrorRate > alertErrorRate {
		out = append(out, Alert{
			Severity: SeverityHigh,
			Title:    "High error rate",
			Message:  fmt.Sprintf("%.1f%% of conversations ended in an error (threshold %.0f%%).", a.ErrorRate, alertErrorRate),
		})
	}
	if a.TotalConversations > 0 && a.ResolvedRate < alertResolvedRate {
		out = append(out, Alert{
			Severity: SeverityHigh,
			Title:    "Low resolution rate",
			Message:  fmt.Sprintf("Only %.1f%% of conversations were resolved (threshold %.0f%%).", a.ResolvedRate, alertResolvedRate),
		})
	}
	if a.AverageRating > 0 && a.AverageRating < alertRating {
		out = append(out, Alert{
			Severity: SeverityMedium,
			Title:    "Low user rating",
			Message:  fmt.Sprintf("Average rating is %.1f/5.", a.AverageRating),
		})
	}
	if a.Sentiment.Negative > alertNegative {
		out = append(out, Alert{
			Severity: SeverityMedium,
			Title:    "Negative sentiment",
			Message:  fmt.Sprintf("%.1f%% of user messages read as negative.", a.Sentiment.Negative),
		})
	}
	if a.ResponseTime.P95 > alertP95Ms {
		out = append(out, Alert{
			Severity: SeverityLow,
			Title:    "Slow responses",
			Message:  fmt.Sprintf("95th percentile response time is %dms.", a.ResponseTime.P95),
		})
	}
	if peak := a.PeakHour(); a.TotalConversations > 0 && hourShare(peak, a) > alertPeakHourShare {
		out = append(out, Alert{
			Severity: SeverityLow,
			Title:    "Traffic spike",
			Message:  fmt.Sprintf("Hour %02d:00 carried %d conversations (%.1f%% of traffic).", peak.Hour, peak.Count, hourShare(peak, a)),
		})
	}
	return out
}

func recommendations(a *analytics.Analytics) []string {
	out := []string{}

	if a.ErrorRate > recErrorRate {
		out = append(out, "Investigate the most frequent bot errors; the error rate is above 5%.")
	}
	if a.TotalConversations > 0 && a.ResolvedRate < recResolvedRate {
		out = append(out, "Review unresolved conversations for knowledge-base gaps.")
	}
	if issue, ok := a.TopIssue(); ok {
		out = append(out, fmt.Sprintf("Add a targeted response for %q, mentioned %d times.", issue.Pattern, issue.Frequency))
	}
	if a.Sentiment.Negative > recNegative {
		out = append(out, "Offer earlier escalation to a human agent for frustrated users.")
	}
	if a.TotalConversations > 0 {
		var busy []string
		for _, h := range a.HourlyDistribution {
			if hourShare(h, a) > recHourShare {
				busy = append(busy, fmt.Sprintf("%02d:00", h.Hour))
			}
		}
		if len(busy) > 0 {
			out = append(out, "Scale support capacity around peak hours: "+strings.Join(busy, ", ")+".")
		}
	}
	if cat, ok := a.TopCategory(); ok && cat.Percentage > recCategoryShare {
		out = append(out, fmt.Sprintf("Enhance answers for %q, which accounts for %.1f%% of conversations.", cat.Category, cat.Percentage))
	}
	if a.AverageDuration > recDurationSeconds {
		out = append(out, "Shorten conversation flows; sessions average over 10 minutes.")
	}
	return out
}

func highlights(a *analytics.Analytics) []string {
	out := []string{}

	if a.ResolvedRate > highlightResolved {
		out = append(out, fmt.Sprintf("Strong resolution rate of %.1f%%.", a.ResolvedRate))
	}
	if a.AverageRating >= highlightRating {
		out = append(out, fmt.Sprintf("High average rating of %.1f/5.", a.AverageRating))
	}
	if a.TotalConversations > 0 && a.ErrorRate < highlightErrorRate {
		out = append(out, fmt.Sprintf("Low error rate of %.1f%%.", a.ErrorRate))
	}
	if a.Sentiment.Positive > highlightPositive {
		out = append(out, fmt.Sprintf("%.1f%% of user messages were positive.", a.Sentiment.Positive))
	}
	if m := a.ResponseTime.Median; m > 0 && m < highlightMedianMsLt {
		out = append(out, fmt.Sprintf("Fast median response time of %dms.", m))
	}
	return out
}

func hourShare(h analytics.HourCount, a *analytics.Analytics) float64 {
	if a.TotalConversations == 0 {
		return 0
	}
	return float64(h.Count) / float64(a.TotalConversations) * 100
}
