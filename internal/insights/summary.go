package insights

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
)

const currentPeriod = "current period"

func period(a *analytics.Analytics) string {
	if len(a.DailyTrend) == 0 {
		return currentPeriod
	}
	first, last := a.DailyTrend[0].Date, a.DailyTrend[len(a.DailyTrend)-1].Date
	if first == last {
		return first
	}
	return first + " to " + last
}

func summary(a *analytics.Analytics) string {
	var b strings.Builder

	p := period(a)
	if p == currentPeriod {
		b.WriteString("During the current period")
	} else {
		b.WriteString("During " + p)
	}
	fmt.Fprintf(&b, ", the assistant handled %s conversations across %s sessions with a %.1f%% resolution rate.",
		humanize.Comma(int64(a.TotalConversations)), humanize.Comma(int64(a.ActiveUsers)), a.ResolvedRate)

	if a.AverageRating > 0 {
		fmt.Fprintf(&b, " Users rated the experience %.1f/5 on average.", a.AverageRating)
	}
	if a.ErrorRate > recErrorRate {
		fmt.Fprintf(&b, " The error rate is elevated at %.1f%%.", a.ErrorRate)
	}
	if cat, ok := a.TopCategory(); ok {
		fmt.Fprintf(&b, " The most common topic was %s (%.1f%%).", cat.Category, cat.Percentage)
	}
	return b.String()
}
