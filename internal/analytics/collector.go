package analytics

import "github.com/ConfabulousDev/chat-insights/internal/models"

// CollectContext provides shared state during the single pass over the logs.
type CollectContext struct {
	// Total is the number of logs seen so far; the final value is the
	// denominator for every rate and percentage.
	Total int

	// SessionIDs records distinct sessions in first-seen order.
	SessionIDs []string
	sessions   map[string]int
}

// Collector accumulates one part of the aggregate.
type Collector interface {
	// Collect is called for each log during the single pass.
	Collect(log *models.InteractionLog, ctx *CollectContext)

	// Finalize is called once after all logs have been processed and writes
	// its results into out.
	Finalize(ctx *CollectContext, out *Analytics)
}

// RunCollectors performs a single pass over the logs, invoking every collector
// for each one, then finalizes them in order.
func RunCollectors(logs []models.InteractionLog, out *Analytics, collectors ...Collector) *CollectContext {
	ctx := &CollectContext{sessions: make(map[string]int)}

	for i := range logs {
		log := &logs[i]
		ctx.Total++
		if _, ok := ctx.sessions[log.SessionID]; !ok {
			ctx.SessionIDs = append(ctx.SessionIDs, log.SessionID)
		}
		ctx.sessions[log.SessionID]++

		for _, c := range collectors {
			c.Collect(log, ctx)
		}
	}

	for _, c := range collectors {
		c.Finalize(ctx, out)
	}
	return ctx
}

// percentOf returns n as a percentage of total, or 0 when total is 0.
func percentOf(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
