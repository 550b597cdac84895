package analytics

import (
	"unicode/utf8"

	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// OutcomeCollector counts resolutions, errors, ratings, durations and message
// lengths. Averages only include values greater than zero; absent ratings and
// durations are zero and so never drag an average down.
type OutcomeCollector struct {
	resolved int
	errors   int

	ratingSum   int
	ratingCount int

	durationSum   float64
	durationCount int

	lengthSum   int
	lengthCount int
}

func (c *OutcomeCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	if log.Resolved {
		c.resolved++
	}
	if log.Error {
		c.errors++
	}
	if log.Rating > 0 {
		c.ratingSum += log.Rating
		c.ratingCount++
	}
	if log.SessionDuration > 0 {
		c.durationSum += log.SessionDuration
		c.durationCount++
	}
	if n := utf8.RuneCountInString(log.UserMessage); n > 0 {
		c.lengthSum += n
		c.lengthCount++
	}
}

func (c *OutcomeCollector) Finalize(ctx *CollectContext, out *Analytics) {
	out.TotalConversations = ctx.Total
	out.ResolvedRate = percentOf(c.resolved, ctx.Total)
	out.ErrorRate = percentOf(c.errors, ctx.Total)
	if c.ratingCount > 0 {
		out.AverageRating = float64(c.ratingSum) / float64(c.ratingCount)
	}
	if c.durationCount > 0 {
		out.AverageDuration = c.durationSum / float64(c.durationCount)
	}
	if c.lengthCount > 0 {
		out.AvgMessageLength = float64(c.lengthSum) / float64(c.lengthCount)
	}
}

// SessionCollector derives per-session figures: active users, messages per
// session and sessions that triggered an action.
type SessionCollector struct {
	withAction map[string]bool
}

func NewSessionCollector() *SessionCollector {
	return &SessionCollector{withAction: make(map[string]bool)}
}

func (c *SessionCollector) Collect(log *models.InteractionLog, _ *CollectContext) {
	if log.Metadata.HasAction {
		c.withAction[log.SessionID] = true
	}
}

func (c *SessionCollector) Finalize(ctx *CollectContext, out *Analytics) {
	out.ActiveUsers = len(ctx.SessionIDs)
	out.SessionsWithActions = len(c.withAction)
	if len(ctx.SessionIDs) > 0 {
		out.MessagesPerSession = float64(ctx.Total) / float64(len(ctx.SessionIDs))
	}
}
