package conversation

import (
	"context"
	"sync"

	"github.com/ConfabulousDev/chat-insights/internal/logger"
	"github.com/ConfabulousDev/chat-insights/internal/models"
)

// Outcome is the result of analyzing one session in a batch run. Exactly one
// of Analysis and Err is set.
type Outcome struct {
	SessionID string
	Analysis  *Analysis
	Err       error
}

// AnalyzeMany analyzes sessions in batches of BatchSize, pausing BatchDelay
// between batches. A failed session is recorded in its Outcome and does not
// stop the run. If ctx is cancelled, sessions not yet started are reported
// with the context error. Outcomes are in input order.
func (a *Analyzer) AnalyzeMany(ctx context.Context, sessions []models.EnrichedSession) []Outcome {
	log := logger.Ctx(ctx)
	outcomes := make([]Outcome, len(sessions))

	for start := 0; start < len(sessions); start += a.cfg.BatchSize {
		if start > 0 {
			if err := a.sleep(ctx, a.cfg.BatchDelay); err != nil {
				for i := start; i < len(sessions); i++ {
					outcomes[i] = Outcome{SessionID: sessions[i].ID, Err: err}
				}
				log.Warn("analysis batch run cancelled", "analyzed", start, "remaining", len(sessions)-start)
				return outcomes
			}
		}

		end := min(start+a.cfg.BatchSize, len(sessions))
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				analysis, err := a.Analyze(ctx, sessions[i])
				outcomes[i] = Outcome{SessionID: sessions[i].ID, Analysis: analysis, Err: err}
			}()
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if outcomes[i].Err != nil {
				log.Warn("session analysis failed", "session_id", outcomes[i].SessionID, "error", outcomes[i].Err)
			}
		}
		log.Debug("analysis batch complete", "from", start, "to", end, "total", len(sessions))
	}
	return outcomes
}

// Split separates successful analyses from failed outcomes, keeping order.
func Split(outcomes []Outcome) ([]Analysis, []Outcome) {
	var ok []Analysis
	var failed []Outcome
	for _, o := range outcomes {
		if o.Err != nil || o.Analysis == nil {
			failed = append(failed, o)
			continue
		}
		ok = append(ok, *o.Analysis)
	}
	return ok, failed
}
