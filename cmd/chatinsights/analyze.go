package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ConfabulousDev/chat-insights/internal/anthropic"
	"github.com/ConfabulousDev/chat-insights/internal/config"
	"github.com/ConfabulousDev/chat-insights/internal/conversation"
	"github.com/ConfabulousDev/chat-insights/internal/report"
)

var (
	analyzeFlags       sourceFlags
	analyzeFormat      string
	analyzeMaxSessions int
	analyzeModel       string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run AI conversation analysis over a set of sessions",
	Long: `Send each session to the model for qualitative analysis and aggregate
the results into one report.

Requires ANTHROPIC_API_KEY. The model comes from --model or ANALYSIS_MODEL.`,
	Example: `  chatinsights analyze --input sessions.json --max-sessions 20 --format html -o ai.html`,
	RunE:    runAnalyze,
}

func init() {
	analyzeFlags.register(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "html", "Output format: html or json")
	analyzeCmd.Flags().IntVar(&analyzeMaxSessions, "max-sessions", 0, "Analyze at most this many sessions (default ANALYSIS_MAX_SESSIONS)")
	analyzeCmd.Flags().StringVar(&analyzeModel, "model", "", "Model to use (default ANALYSIS_MODEL)")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if analyzeFormat != "html" && analyzeFormat != "json" {
		return fmt.Errorf("unknown format %q (want html or json)", analyzeFormat)
	}
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if analyzeModel != "" {
		cfg.Analysis.Model = analyzeModel
	}
	if cfg.Analysis.APIKey == "" {
		return errors.New("ANTHROPIC_API_KEY is not set")
	}
	if cfg.Analysis.Model == "" {
		return errors.New("no model: pass --model or set ANALYSIS_MODEL")
	}
	maxSessions := cfg.Analysis.MaxSessions
	if analyzeMaxSessions > 0 {
		maxSessions = analyzeMaxSessions
	}

	w, _, err := analyzeFlags.window()
	if err != nil {
		return err
	}
	src, closeSrc, err := analyzeFlags.open(ctx)
	defer closeSrc()
	if err != nil {
		return err
	}
	sessions, err := src.ListSessions(ctx, analyzeFlags.query(w))
	if err != nil {
		return fmt.Errorf("failed to load sessions: %w", err)
	}
	if len(sessions) == 0 {
		return errors.New("no sessions matched")
	}

	client := anthropic.NewClient(cfg.Analysis.APIKey,
		anthropic.WithBaseURL(cfg.Analysis.BaseURL),
		anthropic.WithTimeout(cfg.Analysis.Timeout),
	)
	analyzer := conversation.NewAnalyzer(client, conversation.AnalyzerConfig{
		Model:      cfg.Analysis.Model,
		BatchSize:  cfg.Analysis.BatchSize,
		BatchDelay: cfg.Analysis.BatchDelay,
	})
	runner := report.NewRunner(src, analyzer, nil, report.Config{
		Location:    cfg.Report.Location,
		MaxSessions: maxSessions,
	})

	n := len(sessions)
	if maxSessions > 0 {
		n = min(n, maxSessions)
	}
	fmt.Fprintln(cmd.ErrOrStderr(), dimStyle.Render(fmt.Sprintf("Analyzing %d of %d sessions with %s...",
		n, len(sessions), cfg.Analysis.Model)))

	rep, err := runner.AnalyzeSessions(ctx, sessions)
	if err != nil {
		return err
	}

	out, closeOut, err := analyzeFlags.output()
	if err != nil {
		return err
	}
	if err := writeAIReport(out, rep, analyzeFormat); err != nil {
		closeOut()
		return err
	}
	if err := closeOut(); err != nil {
		return err
	}

	printAISummary(cmd.ErrOrStderr(), rep)
	if analyzeFlags.out != "" {
		fmt.Fprintln(cmd.ErrOrStderr(), countStyle.Render("✓"), "Report written to", analyzeFlags.out)
	}
	return nil
}

func writeAIReport(out io.Writer, rep *conversation.Report, format string) error {
	if format == "json" {
		data, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	html, err := conversation.RenderHTML(rep, rep.GeneratedAt)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, html)
	return err
}

func printAISummary(out io.Writer, rep *conversation.Report) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, sectionStyle.Render("Analysis"))
	fmt.Fprintf(out, "  Analyzed:  %s\n", countStyle.Render(fmt.Sprint(rep.TotalSessions)))
	if len(rep.Failed) > 0 {
		fmt.Fprintf(out, "  Failed:    %s\n", errorStyle.Render(fmt.Sprint(len(rep.Failed))))
		for _, f := range rep.Failed {
			fmt.Fprintf(out, "    %s %s\n", f.SessionID, dimStyle.Render(f.Error))
		}
	}
	fmt.Fprintf(out, "  Tokens:    %d in / %d out\n", rep.Usage.InputTokens, rep.Usage.OutputTokens)
	fmt.Fprintf(out, "  Est. cost: $%s\n", rep.EstimatedCostUSD.StringFixed(4))
}
