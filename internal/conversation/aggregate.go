package conversation

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/models"
)

const (
	topPatternsLimit     = 10
	topImprovementsLimit = 10
	improvementKeyRunes  = 50
	maxMergedExamples    = 3

	// ProblemTrendStable is reported for every problem type; no historical
	// baseline is kept to compute a real trend.
	ProblemTrendStable = "stable"

	unknownPlatform = "unknown"
)

// RequestPattern groups sessions by first-request intent.
type RequestPattern struct {
	Intent     string  `json:"intent"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	AvgClarity float64 `json:"avg_clarity"`
}

// FlowPattern groups sessions by satisfaction trend and topic-change count.
type FlowPattern struct {
	Pattern           string   `json:"pattern"`
	Frequency         int      `json:"frequency"`
	AvgQuality        float64  `json:"avg_quality"`
	Misunderstandings []string `json:"misunderstandings"`
}

// EndingPattern groups sessions by resolution and who ended the chat.
type EndingPattern struct {
	Pattern    string   `json:"pattern"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
	Reasons    []string `json:"reasons"`
}

// RankedImprovement is a deduplicated improvement with how often it was suggested.
type RankedImprovement struct {
	Improvement
	Frequency int `json:"frequency"`
}

// ProblemDistribution counts one problem type across sessions.
type ProblemDistribution struct {
	Type        string  `json:"type"`
	Occurrences int     `json:"occurrences"`
	Percentage  float64 `json:"percentage"`
	Trend       string  `json:"trend"`
}

// Transcript pairs a session's messages with its analysis for display.
type Transcript struct {
	SessionID     string               `json:"session_id"`
	CreatedAt     time.Time            `json:"created_at"`
	LastMessageAt time.Time            `json:"last_message_at"`
	Platform      string               `json:"platform"`
	Messages      []models.ChatMessage `json:"messages"`
	Analysis      Analysis             `json:"analysis"`
}

// FailedSession names a session whose analysis failed.
type FailedSession struct {
	SessionID string `json:"session_id"`
	Error     string `json:"error"`
}

// Report is the cross-session aggregate of many analyses. It is built once
// per run and not modified afterwards.
type Report struct {
	TotalSessions    int                   `json:"total_sessions"`
	GeneratedAt      time.Time             `json:"generated_at"`
	RequestPatterns  []RequestPattern      `json:"request_patterns"`
	FlowPatterns     []FlowPattern         `json:"flow_patterns"`
	EndingPatterns   []EndingPattern       `json:"ending_patterns"`
	TopImprovements  []RankedImprovement   `json:"top_improvements"`
	ProblemTypes     []ProblemDistribution `json:"problem_types"`
	Transcripts      []Transcript          `json:"transcripts"`
	Failed           []FailedSession       `json:"failed,omitempty"`
	Usage            anthropic.Usage       `json:"usage"`
	EstimatedCostUSD decimal.Decimal       `json:"estimated_cost_usd"`
}

// Aggregate merges analyses into a report. sessions supplies transcripts and
// may be nil or incomplete; a missing session yields an empty transcript.
func Aggregate(at time.Time, analyses []Analysis, sessions []models.EnrichedSession) *Report {
	total := len(analyses)
	r := &Report{
		TotalSessions:   total,
		GeneratedAt:     at,
		RequestPatterns: requestPatterns(analyses),
		FlowPatterns:    flowPatterns(analyses),
		EndingPatterns:  endingPatterns(analyses),
		TopImprovements: rankImprovements(analyses),
		ProblemTypes:    problemDistribution(analyses),
		Transcripts:     stitchTranscripts(analyses, sessions),
	}
	for _, a := range analyses {
		r.Usage = r.Usage.Add(a.Usage)
		r.EstimatedCostUSD = r.EstimatedCostUSD.Add(EstimateCost(a.Model, a.Usage))
	}
	return r
}

// WithFailures records failed outcomes on the report.
func (r *Report) WithFailures(failed []Outcome) *Report {
	for _, o := range failed {
		msg := "no analysis"
		if o.Err != nil {
			msg = o.Err.Error()
		}
		r.Failed = append(r.Failed, FailedSession{SessionID: o.SessionID, Error: msg})
	}
	return r
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func requestPatterns(analyses []Analysis) []RequestPattern {
	var out []*RequestPattern
	byIntent := map[string]*RequestPattern{}
	clarity := map[string]int{}
	for _, a := range analyses {
		intent := a.FirstRequest.Intent
		p, ok := byIntent[intent]
		if !ok {
			p = &RequestPattern{Intent: intent}
			byIntent[intent] = p
			out = append(out, p)
		}
		p.Count++
		clarity[intent] += a.FirstRequest.ClarityScore
	}

	result := derefAll(out)
	for i := range result {
		result[i].Percentage = pct(result[i].Count, len(analyses))
		result[i].AvgClarity = float64(clarity[result[i].Intent]) / float64(result[i].Count)
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return capped(result, topPatternsLimit)
}

// flowPatterns keeps a two-point running average of quality: each new score
// is averaged with the previous average, so later sessions weigh more.
func flowPatterns(analyses []Analysis) []FlowPattern {
	var out []*FlowPattern
	byKey := map[string]*FlowPattern{}
	for _, a := range analyses {
		key := fmt.Sprintf("%s_%dtopics", a.Flow.SatisfactionTrend, a.Flow.TopicChanges)
		p, ok := byKey[key]
		if !ok {
			p = &FlowPattern{Pattern: key, AvgQuality: float64(a.Flow.QualityScore), Misunderstandings: []string{}}
			byKey[key] = p
			out = append(out, p)
		} else {
			p.AvgQuality = (p.AvgQuality + float64(a.Flow.QualityScore)) / 2
		}
		p.Frequency++
		p.Misunderstandings = append(p.Misunderstandings, a.Flow.Misunderstandings...)
	}

	result := derefAll(out)
	sort.SliceStable(result, func(i, j int) bool { return result[i].Frequency > result[j].Frequency })
	return capped(result, topPatternsLimit)
}

func endingPatterns(analyses []Analysis) []EndingPattern {
	var out []*EndingPattern
	byKey := map[string]*EndingPattern{}
	for _, a := range analyses {
		key := a.Ending.Resolution + "_" + a.Ending.EndedBy
		p, ok := byKey[key]
		if !ok {
			p = &EndingPattern{Pattern: key, Reasons: []string{}}
			byKey[key] = p
			out = append(out, p)
		}
		p.Count++
		if a.Ending.Reason != "" {
			p.Reasons = append(p.Reasons, a.Ending.Reason)
		}
	}

	result := derefAll(out)
	for i := range result {
		result[i].Percentage = pct(result[i].Count, len(analyses))
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result
}

// improvementKey groups suggestions whose category and issue share their
// first 50 characters.
func improvementKey(imp Improvement) string {
	key := []rune(imp.Category + "-" + imp.Issue)
	if len(key) > improvementKeyRunes {
		key = key[:improvementKeyRunes]
	}
	return string(key)
}

func priorityRank(p string) int {
	switch strings.ToLower(p) {
	case "high":
		return 0
	case "medium":
		return 1
	case "low":
		return 2
	default:
		return 3
	}
}

func rankImprovements(analyses []Analysis) []RankedImprovement {
	var out []*RankedImprovement
	byKey := map[string]*RankedImprovement{}
	for _, a := range analyses {
		for _, imp := range a.Improvements {
			key := improvementKey(imp)
			r, ok := byKey[key]
			if !ok {
				seed := imp
				seed.Examples = mergeExamples(nil, imp.Examples)
				r = &RankedImprovement{Improvement: seed}
				byKey[key] = r
				out = append(out, r)
			} else {
				r.Examples = mergeExamples(r.Examples, imp.Examples)
			}
			r.Frequency++
		}
	}

	result := derefAll(out)
	sort.SliceStable(result, func(i, j int) bool {
		pi, pj := priorityRank(result[i].Priority), priorityRank(result[j].Priority)
		if pi != pj {
			return pi < pj
		}
		return result[i].Frequency > result[j].Frequency
	})
	return capped(result, topImprovementsLimit)
}

// mergeExamples appends unseen examples to dst, stopping at three.
func mergeExamples(dst, src []string) []string {
	out := slices.Clone(dst)
	if out == nil {
		out = []string{}
	}
	for _, ex := range src {
		if len(out) >= maxMergedExamples {
			break
		}
		if !slices.Contains(out, ex) {
			out = append(out, ex)
		}
	}
	return out
}

func problemDistribution(analyses []Analysis) []ProblemDistribution {
	var out []*ProblemDistribution
	byType := map[string]*ProblemDistribution{}
	for _, a := range analyses {
		for _, p := range a.ProblemTypes {
			d, ok := byType[p.Type]
			if !ok {
				d = &ProblemDistribution{Type: p.Type, Trend: ProblemTrendStable}
				byType[p.Type] = d
				out = append(out, d)
			}
			d.Occurrences++
		}
	}

	result := derefAll(out)
	for i := range result {
		result[i].Percentage = pct(result[i].Occurrences, len(analyses))
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Occurrences > result[j].Occurrences })
	return result
}

func stitchTranscripts(analyses []Analysis, sessions []models.EnrichedSession) []Transcript {
	byID := make(map[string]*models.EnrichedSession, len(sessions))
	for i := range sessions {
		byID[sessions[i].ID] = &sessions[i]
	}

	out := make([]Transcript, 0, len(analyses))
	for _, a := range analyses {
		t := Transcript{
			SessionID: a.SessionID,
			Platform:  unknownPlatform,
			Messages:  []models.ChatMessage{},
			Analysis:  a,
		}
		if s, ok := byID[a.SessionID]; ok {
			t.CreatedAt = s.CreatedAt
			t.LastMessageAt = s.LastMessageAt
			if s.Platform != "" {
				t.Platform = s.Platform
			}
			if s.Messages != nil {
				t.Messages = s.Messages
			}
		}
		out = append(out, t)
	}
	return out
}

func derefAll[T any](ptrs []*T) []T {
	out := make([]T, len(ptrs))
	for i, p := range ptrs {
		out[i] = *p
	}
	return out
}

func capped[T any](s []T, n int) []T {
	if len(s) > n {
		return s[:n]
	}
	return s
}
