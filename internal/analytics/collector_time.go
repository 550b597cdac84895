package analytics

import (
	"sort"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

const dateLayout = "2006-01-02"

// TimeCollector buckets logs by hour of day and by calendar date. Both use the
// location already attached to each timestamp; logs without a timestamp are
// skipped.
type TimeCollector struct {
	hours [24]int
	days  map[string]*DailyCount
}

func NewTimeCollector() *TimeCollector {
	return &TimeCollector{days: make(map[string]*DailyCount)}
}

func (c *TimeCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	if log.Timestamp.IsZero() {
		return
	}
	c.hours[log.Timestamp.Hour()]++

	date := log.Timestamp.Format(dateLayout)
	d, ok := c.days[date]
	if !ok {
		d = &DailyCount{Date: date}
		c.days[date] = d
	}
	d.Count++
	if log.Resolved {
		d.Resolved++
	}
	if log.Error {
		d.Errors++
	}
}

func (c *TimeCollector) Finalize(_ *CollectContext, out *Analytics) {
	out.HourlyDistribution = make([]HourCount, 24)
	for h := range c.hours {
		out.HourlyDistribution[h] = HourCount{Hour: h, Count: c.hours[h]}
	}

	daily := make([]DailyCount, 0, len(c.days))
	for _, d := range c.days {
		daily = append(daily, *d)
	}
	// ISO dates sort lexically.
	sort.Slice(daily, func(i, j int) bool { return daily[i].Date < daily[j].Date })
	if len(daily) > dailyTrendDays {
		daily = daily[len(daily)-dailyTrendDays:]
	}
	out.DailyTrend = daily
}
