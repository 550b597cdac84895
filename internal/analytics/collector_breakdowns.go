package analytics

import (
	"sort"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// keyCounter counts string keys and remembers first-seen order for tie-breaks.
type keyCounter struct {
	order  []string
	counts map[string]int
}

func newKeyCounter() *keyCounter {
	return &keyCounter{counts: make(map[string]int)}
}

func (k *keyCounter) add(key string) {
	if key == "" {
		return
	}
	if _, ok := k.counts[key]; !ok {
		k.order = append(k.order, key)
	}
	k.counts[key]++
}

// ranked returns keys by count descending, ties in first-seen order, capped at
// limit when limit > 0.
func (k *keyCounter) ranked(total, limit int) []KeyCount {
	out := make([]KeyCount, 0, len(k.order))
	for _, key := range k.order {
		out = append(out, KeyCount{Key: key, Count: k.counts[key], Percentage: percentOf(k.counts[key], total)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// BreakdownCollector builds the category, platform and app-version breakdowns.
type BreakdownCollector struct {
	categories *keyCounter
	platforms  *keyCounter
	versions   *keyCounter
}

func NewBreakdownCollector() *BreakdownCollector {
	return &BreakdownCollector{
		categories: newKeyCounter(),
		platforms:  newKeyCounter(),
		versions:   newKeyCounter(),
	}
}

func (c *BreakdownCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	c.categories.add(log.Category)
	c.platforms.add(log.Platform)
	c.versions.add(log.Metadata.AppVersion)
}

func (c *BreakdownCollector) Finalize(ctx *CollectContext, out *Analytics) {
	cats := c.categories.ranked(ctx.Total, topCategoriesLimit)
	out.TopCategories = make([]CategoryCount, len(cats))
	for i, kc := range cats {
		out.TopCategories[i] = CategoryCount{Category: kc.Key, Count: kc.Count, Percentage: kc.Percentage}
	}
	out.PlatformBreakdown = c.platforms.ranked(ctx.Total, 0)
	out.AppVersionBreakdown = c.versions.ranked(ctx.Total, topVersionsLimit)
}
