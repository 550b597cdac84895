package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/config"
	"github.com/ConfabulousDev/chat-insights/internal/insights"
	"github.com/ConfabulousDev/chat-insights/internal/models"
	"github.com/ConfabulousDev/chat-insights/internal/report"
)

var (
	reportFlags  sourceFlags
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Compute statistics and insights for a set of sessions",
	Long: `Compute statistics and rule-based insights for chat sessions.

With both --from and --to the window of the same length just before --from is
used as the comparison period. Without them every session is included and no
comparison is made.`,
	Example: `  chatinsights report --input sessions.json
  chatinsights report --sqlite chats.db --from 2026-03-01 --to 2026-03-08 --format html -o report.html`,
	RunE: runReport,
}

func init() {
	reportFlags.register(reportCmd)
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "Output format: text, html or json")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	switch reportFormat {
	case "text", "html", "json":
	default:
		return fmt.Errorf("unknown format %q (want text, html or json)", reportFormat)
	}
	ctx := cmd.Context()

	w, bounded, err := reportFlags.window()
	if err != nil {
		return err
	}
	src, closeSrc, err := reportFlags.open(ctx)
	defer closeSrc()
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	current, err := src.ListSessions(ctx, reportFlags.query(w))
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	var previous []models.ChatSession
	if bounded {
		previous, err = src.ListSessions(ctx, reportFlags.query(w.Previous()))
		if err != nil {
			return fmt.Errorf("failed to load previous sessions: %w", err)
		}
		if previous == nil {
			previous = []models.ChatSession{}
		}
	} else {
		w = fillWindow(w, models.SpanOf(current))
	}

	runner := report.NewRunner(src, nil, nil, report.Config{Location: cfg.Report.Location})
	rep := runner.ComputeInsights(w, current, previous)

	out, closeOut, err := reportFlags.output()
	if err != nil {
		return err
	}
	if err := writeReport(out, rep, reportFormat); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}
	if reportFlags.out != "" {
		fmt.Println(countStyle.Render("✓"), "Report written to", reportFlags.out)
	}
	return nil
}

func writeReport(out io.Writer, rep *report.InsightsReport, format string) error {
	switch format {
	case "json":
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "html":
		html, err := insights.RenderHTML(rep.Insights, rep.GeneratedAt)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, html)
		return err
	default:
		fmt.Fprintln(out, titleStyle.Render("Support Chat Insights"))
		fmt.Fprintln(out, dimStyle.Render(windowLabel(rep.Window)))
		if len(rep.Insights.Alerts) > 0 {
			fmt.Fprintln(out, warningStyle.Render(fmt.Sprintf("%d alert(s)", len(rep.Insights.Alerts))))
		}
		fmt.Fprintln(out)
		_, err := io.WriteString(out, insights.RenderText(rep.Insights, rep.GeneratedAt))
		return err
	}
}

// fillWindow replaces the open ends of w with span's.
func fillWindow(w, span models.Window) models.Window {
	if w.From.IsZero() {
		w.From = span.From
	}
	if w.To.IsZero() {
		w.To = span.To
	}
	return w
}

func windowLabel(w models.Window) string {
	if w.From.IsZero() && w.To.IsZero() {
		return "no sessions"
	}
	parts := []string{w.From.Format(time.DateTime), w.To.Format(time.DateTime)}
	return strings.Join(parts, " → ")
}
