package insights

import (
	"fmt"
	"math"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
)

// trendDeadBand is the percent change within which a metric counts as stable.
const trendDeadBand = 5.0

type metricDef struct {
	name   string
	value  func(*analytics.Analytics) float64
	format func(float64) string
}

var metricDefs = []metricDef{
	{"Total Conversations", func(a *analytics.Analytics) float64 { return float64(a.TotalConversations) }, formatCount},
	{"Active Users", func(a *analytics.Analytics) float64 { return float64(a.ActiveUsers) }, formatCount},
	{"Resolution Rate", func(a *analytics.Analytics) float64 { return a.ResolvedRate }, formatPercent},
	{"Average Rating", func(a *analytics.Analytics) float64 { return a.AverageRating }, formatRating},
	{"Error Rate", func(a *analytics.Analytics) float64 { return a.ErrorRate }, formatPercent},
	{"Avg Session Duration", func(a *analytics.Analytics) float64 { return a.AverageDuration }, formatDuration},
}

func keyMetrics(cur, prev *analytics.Analytics) []KeyMetric {
	out := make([]KeyMetric, 0, len(metricDefs))
	for _, def := range metricDefs {
		v := def.value(cur)
		m := KeyMetric{Name: def.name, Value: def.format(v)}
		if prev != nil {
			change, label := PercentChange(v, def.value(prev))
			m.Change = label
			m.Trend = classify(change)
		}
		out = append(out, m)
	}
	return out
}

// PercentChange returns the change from prev to cur in percent and its label.
// A zero previous value reports +100%.
func PercentChange(cur, prev float64) (float64, string) {
	if prev == 0 {
		return 100, "+100%"
	}
	change := (cur - prev) / prev * 100
	return change, fmt.Sprintf("%+.1f%%", change)
}

func classify(change float64) Trend {
	switch {
	case change > trendDeadBand:
		return TrendUp
	case change < -trendDeadBand:
		return TrendDown
	default:
		return TrendStable
	}
}

func formatCount(v float64) string {
	return humanize.Comma(int64(math.Round(v)))
}

func formatPercent(v float64) string {
	return humanize.FormatFloat("#,###.#", v) + "%"
}

func formatRating(v float64) string {
	if v == 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f/5", v)
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
