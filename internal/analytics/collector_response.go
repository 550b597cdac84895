package analytics

import (
	"slices"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// ResponseTimeCollector gathers recorded response times and reports
// nearest-rank percentiles.
type ResponseTimeCollector struct {
	values []int64
	sum    int64
}

func (c *ResponseTimeCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	if ms, ok := log.Metadata.ResponseTime(); ok {
		c.values = append(c.values, ms)
		c.sum += ms
	}
}

func (c *ResponseTimeCollector) Finalize(_ *CollectContext, out *Analytics) {
	if len(c.values) == 0 {
		out.ResponseTime = ResponseTimeStats{}
		return
	}
	sorted := slices.Clone(c.values)
	slices.Sort(sorted)
	out.ResponseTime = ResponseTimeStats{
		Average: float64(c.sum) / float64(len(sorted)),
		Median:  Percentile(sorted, 0.5),
		P95:     Percentile(sorted, 0.95),
		P99:     Percentile(sorted, 0.99),
		Samples: len(sorted),
	}
}

// Percentile returns the value at floor(n*p) of an ascending slice, clamped to
// the last element. It does not interpolate. Empty input returns 0.
func Percentile(sorted []int64, p float64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(float64(n) * p)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return sorted[idx]
}
