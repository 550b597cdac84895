package analytics

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

var base = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)

func msPtr(v int64) *int64 { return &v }

func TestComputeAnalytics_Empty(t *testing.T) {
	a := ComputeAnalytics(nil)

	if a.TotalConversations != 0 || a.ActiveUsers != 0 {
		t.Errorf("counts = %d/%d, want 0/0", a.TotalConversations, a.ActiveUsers)
	}
	if a.ResolvedRate != 0 || a.ErrorRate != 0 || a.AverageRating != 0 || a.AverageDuration != 0 {
		t.Errorf("rates/averages should be zero, got %+v", a)
	}
	if len(a.HourlyDistribution) != 24 {
		t.Fatalf("len(HourlyDistribution) = %d, want 24", len(a.HourlyDistribution))
	}
	for _, h := range a.HourlyDistribution {
		if h.Count != 0 {
			t.Errorf("hour %d count = %d, want 0", h.Hour, h.Count)
		}
	}
	if len(a.TopCategories) != 0 || len(a.DailyTrend) != 0 || len(a.CommonIssues) != 0 ||
		len(a.PlatformBreakdown) != 0 || len(a.AppVersionBreakdown) != 0 {
		t.Error("breakdowns should be empty")
	}
	if a.Sentiment != (SentimentSplit{}) {
		t.Errorf("Sentiment = %+v, want zero", a.Sentiment)
	}
	if a.ResponseTime != (ResponseTimeStats{}) {
		t.Errorf("ResponseTime = %+v, want zero", a.ResponseTime)
	}
}

func TestComputeAnalytics_RatingExcludesAbsent(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", Resolved: true, Rating: 4, Timestamp: base},
		{SessionID: "b", Resolved: true, Rating: 5, Timestamp: base},
		{SessionID: "c", Resolved: true, Rating: 0, Timestamp: base},
	}
	a := ComputeAnalytics(logs)

	if a.ResolvedRate != 100 {
		t.Errorf("ResolvedRate = %v, want 100", a.ResolvedRate)
	}
	if a.ErrorRate != 0 {
		t.Errorf("ErrorRate = %v, want 0", a.ErrorRate)
	}
	if a.AverageRating != 4.5 {
		t.Errorf("AverageRating = %v, want 4.5", a.AverageRating)
	}
}

func TestComputeAnalytics_RatesUseFullDenominator(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", Resolved: true},
		{SessionID: "a", Error: true},
		{SessionID: "b"},
		{SessionID: "b"},
	}
	a := ComputeAnalytics(logs)

	if a.ResolvedRate != 25 {
		t.Errorf("ResolvedRate = %v, want 25", a.ResolvedRate)
	}
	if a.ErrorRate != 25 {
		t.Errorf("ErrorRate = %v, want 25", a.ErrorRate)
	}
	if a.ActiveUsers != 2 {
		t.Errorf("ActiveUsers = %d, want 2", a.ActiveUsers)
	}
	if a.MessagesPerSession != 2 {
		t.Errorf("MessagesPerSession = %v, want 2", a.MessagesPerSession)
	}
}

func TestComputeAnalytics_Breakdowns(t *testing.T) {
	var logs []models.InteractionLog
	add := func(n int, category, platform, version string) {
		for range n {
			logs = append(logs, models.InteractionLog{
				SessionID: "s", Category: category, Platform: platform,
				Metadata: models.LogMetadata{AppVersion: version},
			})
		}
	}
	add(2, "billing", "ios", "1.0")
	add(3, "login", "android", "1.1")
	add(2, "shipping", "ios", "1.0")
	add(1, "", "", "")

	a := ComputeAnalytics(logs)

	wantCats := []string{"login", "billing", "shipping"}
	if len(a.TopCategories) != len(wantCats) {
		t.Fatalf("len(TopCategories) = %d, want %d", len(a.TopCategories), len(wantCats))
	}
	for i, want := range wantCats {
		if got := a.TopCategories[i].Category; got != want {
			t.Errorf("TopCategories[%d] = %q, want %q", i, got, want)
		}
	}
	if got := a.TopCategories[0].Percentage; got != 37.5 {
		t.Errorf("login percentage = %v, want 37.5", got)
	}

	if len(a.PlatformBreakdown) != 2 || a.PlatformBreakdown[0].Key != "ios" || a.PlatformBreakdown[0].Count != 4 {
		t.Errorf("PlatformBreakdown = %+v", a.PlatformBreakdown)
	}
	if len(a.AppVersionBreakdown) != 2 || a.AppVersionBreakdown[0].Key != "1.0" {
		t.Errorf("AppVersionBreakdown = %+v", a.AppVersionBreakdown)
	}
}

func TestComputeAnalytics_TopCategoriesCapped(t *testing.T) {
	var logs []models.InteractionLog
	for i := range 15 {
		logs = append(logs, models.InteractionLog{SessionID: "s", Category: fmt.Sprintf("cat-%02d", i)})
	}
	a := ComputeAnalytics(logs)
	if len(a.TopCategories) != 10 {
		t.Fatalf("len(TopCategories) = %d, want 10", len(a.TopCategories))
	}
	if a.TopCategories[0].Category != "cat-00" || a.TopCategories[9].Category != "cat-09" {
		t.Errorf("ties should keep first-seen order, got %q..%q", a.TopCategories[0].Category, a.TopCategories[9].Category)
	}
}

func TestComputeAnalytics_Hourly(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", Timestamp: time.Date(2025, 6, 2, 0, 5, 0, 0, time.UTC)},
		{SessionID: "a", Timestamp: time.Date(2025, 6, 2, 13, 5, 0, 0, time.UTC)},
		{SessionID: "a", Timestamp: time.Date(2025, 6, 3, 13, 59, 0, 0, time.UTC)},
		{SessionID: "a"},
	}
	a := ComputeAnalytics(logs)

	if len(a.HourlyDistribution) != 24 {
		t.Fatalf("len = %d, want 24", len(a.HourlyDistribution))
	}
	sum := 0
	for i, h := range a.HourlyDistribution {
		if h.Hour != i {
			t.Errorf("HourlyDistribution[%d].Hour = %d", i, h.Hour)
		}
		sum += h.Count
	}
	if sum != 3 {
		t.Errorf("sum of hourly counts = %d, want 3 (logs with a timestamp)", sum)
	}
	if a.HourlyDistribution[13].Count != 2 {
		t.Errorf("hour 13 = %d, want 2", a.HourlyDistribution[13].Count)
	}
	if got := a.PeakHour(); got.Hour != 13 {
		t.Errorf("PeakHour = %d, want 13", got.Hour)
	}
}

func TestComputeAnalytics_HourUsesTimestampLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	logs := []models.InteractionLog{{SessionID: "a", Timestamp: time.Date(2025, 6, 2, 23, 0, 0, 0, time.UTC).In(loc)}}
	a := ComputeAnalytics(logs)
	if a.HourlyDistribution[1].Count != 1 {
		t.Errorf("expected hour 1 in UTC+2, got %+v", a.HourlyDistribution)
	}
	if a.DailyTrend[0].Date != "2025-06-03" {
		t.Errorf("Date = %q, want 2025-06-03", a.DailyTrend[0].Date)
	}
}

func TestComputeAnalytics_DailyTrendKeepsMostRecent30(t *testing.T) {
	var logs []models.InteractionLog
	// Reverse order to make sure output is sorted rather than insertion-ordered.
	for d := 39; d >= 0; d-- {
		logs = append(logs, models.InteractionLog{
			SessionID: "s",
			Timestamp: base.AddDate(0, 0, d),
			Resolved:  d%2 == 0,
			Error:     d%5 == 0,
		})
	}
	a := ComputeAnalytics(logs)

	if len(a.DailyTrend) != 30 {
		t.Fatalf("len(DailyTrend) = %d, want 30", len(a.DailyTrend))
	}
	for i := 1; i < len(a.DailyTrend); i++ {
		if a.DailyTrend[i-1].Date >= a.DailyTrend[i].Date {
			t.Fatalf("DailyTrend not ascending at %d: %s >= %s", i, a.DailyTrend[i-1].Date, a.DailyTrend[i].Date)
		}
	}
	if got, want := a.DailyTrend[0].Date, base.AddDate(0, 0, 10).Format("2006-01-02"); got != want {
		t.Errorf("first date = %s, want %s", got, want)
	}
	if got, want := a.DailyTrend[29].Date, base.AddDate(0, 0, 39).Format("2006-01-02"); got != want {
		t.Errorf("last date = %s, want %s", got, want)
	}
	// day 10: resolved and error
	if d := a.DailyTrend[0]; d.Resolved != 1 || d.Errors != 1 {
		t.Errorf("day 10 sub-counts = %+v", d)
	}
}

func TestComputeAnalytics_CommonIssues(t *testing.T) {
	long := "My login is broken " + strings.Repeat("x", 200)
	logs := []models.InteractionLog{
		{SessionID: "a", UserMessage: "LOGIN fails"},
		{SessionID: "a", UserMessage: long},
		{SessionID: "b", UserMessage: "login again"},
		{SessionID: "b", UserMessage: "login once more"},
		{SessionID: "c", UserMessage: "what's the weather"},
	}
	a := ComputeAnalytics(logs)

	if len(a.CommonIssues) == 0 {
		t.Fatal("expected issues")
	}
	top := a.CommonIssues[0]
	if top.Pattern != "login" || top.Frequency != 4 {
		t.Errorf("top issue = %+v, want login x4", top)
	}
	if len(top.Examples) != 3 {
		t.Errorf("len(Examples) = %d, want 3", len(top.Examples))
	}
	if n := len([]rune(top.Examples[1])); n != 100 {
		t.Errorf("example length = %d, want 100", n)
	}

	var broken *IssuePattern
	for i := range a.CommonIssues {
		if a.CommonIssues[i].Pattern == "broken" {
			broken = &a.CommonIssues[i]
		}
	}
	if broken == nil || broken.Frequency != 1 {
		t.Errorf("broken = %+v, want frequency 1", broken)
	}
}

func TestComputeAnalytics_Sentiment(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", UserMessage: "Thanks, that was great!"},
		{SessionID: "a", UserMessage: "This is terrible and useless"},
		{SessionID: "a", UserMessage: "Where is my order"},
		{SessionID: "a", UserMessage: "good but broken"},
	}
	a := ComputeAnalytics(logs)

	if a.Sentiment.Positive != 25 || a.Sentiment.Negative != 25 || a.Sentiment.Neutral != 50 {
		t.Errorf("Sentiment = %+v, want 25/50/25", a.Sentiment)
	}
	sum := a.Sentiment.Positive + a.Sentiment.Neutral + a.Sentiment.Negative
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("sentiment sum = %v, want 100", sum)
	}
}

func TestPercentile(t *testing.T) {
	tests := []struct {
		name   string
		values []int64
		p      float64
		want   int64
	}{
		{"empty", nil, 0.5, 0},
		{"single", []int64{7}, 0.99, 7},
		{"median even", []int64{1, 2, 3, 4}, 0.5, 3},
		{"median odd", []int64{1, 2, 3}, 0.5, 2},
		{"p95 of 20", seq(20), 0.95, 20},
		{"p95 of 100", seq(100), 0.95, 96},
		{"p99 of 10 clamps", seq(10), 0.99, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(tt.values, tt.p); got != tt.want {
				t.Errorf("Percentile(%v) = %d, want %d", tt.p, got, tt.want)
			}
		})
	}
}

func seq(n int) []int64 {
	out := make([]int64, n)
	for i := range out {
		out[i] = int64(i + 1)
	}
	return out
}

func TestComputeAnalytics_ResponseTime(t *testing.T) {
	var logs []models.InteractionLog
	for _, v := range []int64{900, 100, 500, 300, 7000} {
		logs = append(logs, models.InteractionLog{SessionID: "a", Metadata: models.LogMetadata{ResponseTimeMs: msPtr(v)}})
	}
	logs = append(logs, models.InteractionLog{SessionID: "a"})

	rt := ComputeAnalytics(logs).ResponseTime
	if rt.Samples != 5 {
		t.Errorf("Samples = %d, want 5", rt.Samples)
	}
	if rt.Average != 1760 {
		t.Errorf("Average = %v, want 1760", rt.Average)
	}
	if rt.Median != 500 || rt.P95 != 7000 || rt.P99 != 7000 {
		t.Errorf("got median/p95/p99 = %d/%d/%d, want 500/7000/7000", rt.Median, rt.P95, rt.P99)
	}
	if !(rt.Median <= rt.P95 && rt.P95 <= rt.P99) {
		t.Error("percentiles out of order")
	}
}

func TestComputeAnalytics_SessionsWithActions(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", Metadata: models.LogMetadata{HasAction: true}},
		{SessionID: "a", Metadata: models.LogMetadata{HasAction: true}},
		{SessionID: "b"},
		{SessionID: "c", Metadata: models.LogMetadata{HasAction: true}},
	}
	if got := ComputeAnalytics(logs).SessionsWithActions; got != 2 {
		t.Errorf("SessionsWithActions = %d, want 2", got)
	}
}

func TestComputeAnalytics_Idempotent(t *testing.T) {
	logs := []models.InteractionLog{
		{SessionID: "a", UserMessage: "login error, thanks", Category: "auth", Platform: "web", Timestamp: base, Resolved: true, Rating: 5,
			Metadata: models.LogMetadata{ResponseTimeMs: msPtr(320), AppVersion: "3.0"}},
		{SessionID: "b", UserMessage: "refund please", Category: "billing", Platform: "ios", Timestamp: base.Add(26 * time.Hour), Error: true},
	}
	first := ComputeAnalytics(logs)
	second := ComputeAnalytics(logs)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("ComputeAnalytics is not idempotent:\n%+v\n%+v", first, second)
	}
}

func TestComputeFromSessions(t *testing.T) {
	sessions := []models.ChatSession{{
		ID:       "s1",
		Platform: "web",
		Messages: []models.ChatMessage{
			{Timestamp: base, Content: "help with payment", IsUser: true},
			{Timestamp: base.Add(time.Second), Content: "Sure"},
		},
	}}
	a := ComputeFromSessions(sessions)
	if a.TotalConversations != 1 || a.ResponseTime.Median != 1000 {
		t.Errorf("got total=%d median=%d, want 1/1000", a.TotalConversations, a.ResponseTime.Median)
	}
}
