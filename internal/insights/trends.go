package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/analytics"
)

const (
	trendWindowDays   = 7
	volumeIncreasePct = 20.0
	noTrendsSentence  = "No significant trends detected in the current period."
)

func trends(a *analytics.Analytics) string {
	var parts []string

	if s, ok := volumeTrend(a.DailyTrend); ok {
		parts = append(parts, s)
	}
	if s, ok := weekendTrend(a.DailyTrend); ok {
		parts = append(parts, s)
	}
	if s, ok := categoryTrend(a.TopCategories); ok {
		parts = append(parts, s)
	}

	if len(parts) == 0 {
		return noTrendsSentence
	}
	return strings.Join(parts, " ")
}

// volumeTrend compares the mean of the last seven daily entries with the mean
// of up to seven entries before them.
func volumeTrend(daily []analytics.DailyCount) (string, bool) {
	n := len(daily)
	if n <= trendWindowDays {
		return "", false
	}
	recent := meanCount(daily[n-trendWindowDays:])
	prior := meanCount(daily[max(0, n-2*trendWindowDays) : n-trendWindowDays])
	if prior == 0 || recent <= prior*(1+volumeIncreasePct/100) {
		return "", false
	}
	return fmt.Sprintf("Conversation volume rose %.1f%% over the last 7 days.", (recent-prior)/prior*100), true
}

// weekendTrend compares average daily volume on Saturdays and Sundays with
// the other days, using the calendar weekday of each date.
func weekendTrend(daily []analytics.DailyCount) (string, bool) {
	var weekend, weekday []analytics.DailyCount
	for _, d := range daily {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			continue
		}
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend = append(weekend, d)
		} else {
			weekday = append(weekday, d)
		}
	}
	if len(weekend) == 0 || len(weekday) == 0 {
		return "", false
	}
	we, wd := meanCount(weekend), meanCount(weekday)
	if we <= wd {
		return "", false
	}
	return fmt.Sprintf("Weekend days are busier than weekdays (%.1f vs %.1f conversations per day).", we, wd), true
}

func categoryTrend(cats []analytics.CategoryCount) (string, bool) {
	switch len(cats) {
	case 0:
		return "", false
	case 1:
		return fmt.Sprintf("Most conversations concern %s (%.1f%%).", cats[0].Category, cats[0].Percentage), true
	default:
		return fmt.Sprintf("Most conversations concern %s (%.1f%%) and %s (%.1f%%).",
			cats[0].Category, cats[0].Percentage, cats[1].Category, cats[1].Percentage), true
	}
}

func meanCount(days []analytics.DailyCount) float64 {
	if len(days) == 0 {
		return 0
	}
	sum := 0
	for _, d := range days {
		sum += d.Count
	}
	return float64(sum) / float64(len(days))
}
