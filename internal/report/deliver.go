package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/ConfabulousDev/chat-insights/internal/conversation"
	"github.com/ConfabulousDev/chat-insights/internal/email"
	"github.com/ConfabulousDev/chat-insights/internal/insights"
	"github.com/ConfabulousDev/chat-insights/internal/logger"
)

// DeliverInsights renders the insights report and mails it to every recipient.
func (r *Runner) DeliverInsights(ctx context.Context, rep *InsightsReport) error {
	html, err := insights.RenderHTML(rep.Insights, rep.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to render insights: %w", err)
	}
	text := insights.RenderText(rep.Insights, rep.GeneratedAt)
	subject := "Support chat insights: " + rep.Insights.Period
	return r.Deliver(ctx, subject, html, text)
}

// DeliverAI renders the AI report and mails it to every recipient.
func (r *Runner) DeliverAI(ctx context.Context, rep *AIReport) error {
	html, err := conversation.RenderHTML(rep.Report, rep.Report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("failed to render AI report: %w", err)
	}
	text := fmt.Sprintf("AI conversation report for %s to %s: %d sessions analyzed, %d failed. Open the HTML version for details.\n",
		rep.Window.From.In(r.cfg.Location).Format("Jan 2 15:04"),
		rep.Window.To.In(r.cfg.Location).Format("Jan 2 15:04 MST"),
		rep.Report.TotalSessions, len(rep.Report.Failed))
	subject := fmt.Sprintf("AI conversation report: %d sessions", rep.Report.TotalSessions)
	return r.Deliver(ctx, subject, html, text)
}

// Deliver sends one message per recipient. A failed recipient does not stop
// the others; all failures are returned together. Without a mailer it only
// logs.
func (r *Runner) Deliver(ctx context.Context, subject, html, text string) error {
	log := logger.Ctx(ctx)
	if r.mailer == nil {
		log.Info("email delivery disabled, report not sent", "subject", subject)
		return nil
	}
	if len(r.cfg.Recipients) == 0 {
		log.Warn("no report recipients configured", "subject", subject)
		return nil
	}

	var errs []error
	sent := 0
	for _, to := range r.cfg.Recipients {
		err := r.mailer.SendReport(ctx, email.ReportEmail{To: to, Subject: subject, HTML: html, Text: text})
		if err != nil {
			if errors.Is(err, email.ErrRateLimitExceeded) {
				log.Warn("report email rate limited", "to", to)
			}
			errs = append(errs, fmt.Errorf("send to %s: %w", to, err))
			continue
		}
		sent++
	}
	log.Info("report delivered", "subject", subject, "sent", sent, "failed", len(errs))
	return errors.Join(errs...)
}
