package conversation

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

const (
	generatedLayout  = "January 2, 2006 15:04 MST"
	transcriptLayout = "Jan 2 15:04"
)

// RenderHTML renders the report as an HTML document.
func RenderHTML(r *Report, generatedAt time.Time) (string, error) {
	tmpl, err := template.New("conversation_report").Funcs(template.FuncMap{
		"pct": func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
		"num": func(v float64) string { return fmt.Sprintf("%.0f", v) },
		"when": func(t time.Time) string {
			if t.IsZero() {
				return "unknown time"
			}
			return t.Format(transcriptLayout)
		},
	}).Parse(reportTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		R           *Report
		GeneratedAt string
		CostUSD     string
	}{r, generatedAt.Format(generatedLayout), r.EstimatedCostUSD.StringFixed(4)}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #ffffff;">
    <table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0">
        <tr>
            <td style="padding: 20px; font-size: 14px; color: #374151;">
                <h1 style="margin: 0 0 4px 0; font-size: 20px; color: #111827;">Conversation Analysis Report</h1>
                <p style="margin: 0 0 16px 0; font-size: 13px; color: #6b7280;">{{.R.TotalSessions}} sessions analyzed · generated {{.GeneratedAt}} · {{.R.Usage.InputTokens}} input / {{.R.Usage.OutputTokens}} output tokens (~${{.CostUSD}})</p>

                {{if .R.Failed}}<div style="margin: 0 0 16px 0; padding: 10px; background-color: #fef2f2; border-left: 3px solid #dc2626;">
                    {{len .R.Failed}} sessions could not be analyzed:{{range .R.Failed}} {{.SessionID}}{{end}}
                </div>{{end}}

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">First requests</h2>
                <table role="presentation" cellspacing="0" cellpadding="4" border="0">
                    {{range .R.RequestPatterns}}<tr><td>{{.Intent}}</td><td>{{.Count}}</td><td>{{pct .Percentage}}</td><td>clarity {{num .AvgClarity}}</td></tr>{{end}}
                </table>

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Conversation flow</h2>
                <table role="presentation" cellspacing="0" cellpadding="4" border="0">
                    {{range .R.FlowPatterns}}<tr><td>{{.Pattern}}</td><td>{{.Frequency}}</td><td>quality {{num .AvgQuality}}</td></tr>{{end}}
                </table>

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Endings</h2>
                <table role="presentation" cellspacing="0" cellpadding="4" border="0">
                    {{range .R.EndingPatterns}}<tr><td>{{.Pattern}}</td><td>{{.Count}}</td><td>{{pct .Percentage}}</td></tr>{{end}}
                </table>

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Top improvements</h2>
                {{range .R.TopImprovements}}<div style="margin: 0 0 10px 0; padding: 10px; background-color: #f9fafb; border-left: 3px solid #6366f1;">
                    <strong>[{{.Priority}}] {{.Category}}</strong> ({{.Frequency}}x): {{.Issue}}<br>
                    <span style="color: #111827;">{{.Suggestion}}</span>
                    {{range .Examples}}<div style="font-size: 12px; color: #6b7280;">"{{.}}"</div>{{end}}
                </div>{{end}}

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Problem types</h2>
                <table role="presentation" cellspacing="0" cellpadding="4" border="0">
                    {{range .R.ProblemTypes}}<tr><td>{{.Type}}</td><td>{{.Occurrences}}</td><td>{{pct .Percentage}}</td><td>{{.Trend}}</td></tr>{{end}}
                </table>

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Transcripts</h2>
                {{range .R.Transcripts}}<div style="margin: 0 0 16px 0; padding: 10px; border: 1px solid #e5e7eb; border-radius: 4px;">
                    <div style="font-size: 12px; color: #6b7280;">{{.SessionID}} · {{.Platform}} · {{when .CreatedAt}}</div>
                    <div style="font-size: 13px; margin: 4px 0;">{{.Analysis.FirstRequest.Intent}} → {{.Analysis.Ending.Resolution}}</div>
                    {{range .Messages}}<div style="font-size: 13px; margin: 2px 0;"><strong>{{if .IsUser}}User{{else}}Bot{{end}}:</strong> {{.Content}}</div>{{end}}
                </div>{{end}}
            </td>
        </tr>
    </table>
</body>
</html>`
