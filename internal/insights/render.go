package insights

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"
)

const generatedLayout = "January 2, 2006 15:04 MST"

// RenderHTML renders the insights as a self-contained HTML document suitable
// for an email body.
func RenderHTML(in *Insights, generatedAt time.Time) (string, error) {
	tmpl, err := template.New("insights").Funcs(template.FuncMap{
		"severityColor": severityColor,
		"trendArrow":    trendArrow,
	}).Parse(htmlTemplate)
	if err != nil {
		return "", err
	}

	data := struct {
		*Insights
		GeneratedAt string
	}{in, generatedAt.Format(generatedLayout)}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderText renders the insights as plain text.
func RenderText(in *Insights, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Chat Insights Report (%s)\n", in.Period)
	fmt.Fprintf(&b, "Generated %s\n\n", generatedAt.Format(generatedLayout))
	b.WriteString(in.Summary + "\n")

	b.WriteString("\nKey metrics\n")
	for _, m := range in.KeyMetrics {
		fmt.Fprintf(&b, "  %-22s %s", m.Name, m.Value)
		if m.Change != "" {
			fmt.Fprintf(&b, " (%s, %s)", m.Change, m.Trend)
		}
		b.WriteString("\n")
	}

	if len(in.Alerts) > 0 {
		b.WriteString("\nAlerts\n")
		for _, a := range in.Alerts {
			fmt.Fprintf(&b, "  [%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.Title, a.Message)
		}
	}
	writeList(&b, "Recommendations", in.Recommendations)
	b.WriteString("\nTrends\n  " + in.Trends + "\n")
	writeList(&b, "Highlights", in.Highlights)
	return b.String()
}

func writeList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n" + title + "\n")
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}

func severityColor(s Severity) string {
	switch s {
	case SeverityHigh:
		return "#dc2626"
	case SeverityMedium:
		return "#d97706"
	default:
		return "#2563eb"
	}
}

func trendArrow(t Trend) string {
	switch t {
	case TrendUp:
		return "▲"
	case TrendDown:
		return "▼"
	case TrendStable:
		return "●"
	}
	return ""
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; background-color: #ffffff;">
    <table role="presentation" width="100%" cellspacing="0" cellpadding="0" border="0">
        <tr>
            <td style="padding: 20px;">
                <h1 style="margin: 0 0 4px 0; font-size: 20px; color: #111827;">Chat Insights Report</h1>
                <p style="margin: 0 0 16px 0; font-size: 13px; color: #6b7280;">{{.Period}} · generated {{.GeneratedAt}}</p>

                <p style="margin: 0 0 16px 0; font-size: 15px; line-height: 1.5; color: #374151;">{{.Summary}}</p>

                <table role="presentation" cellspacing="0" cellpadding="6" border="0" style="margin: 0 0 16px 0; border-collapse: collapse;">
                    {{range .KeyMetrics}}<tr>
                        <td style="font-size: 14px; color: #6b7280;">{{.Name}}</td>
                        <td style="font-size: 14px; font-weight: 600; color: #111827;">{{.Value}}</td>
                        <td style="font-size: 13px; color: #6b7280;">{{if .Change}}{{trendArrow .Trend}} {{.Change}}{{end}}</td>
                    </tr>{{end}}
                </table>

                {{if .Alerts}}<h2 style="margin: 0 0 8px 0; font-size: 16px; color: #111827;">Alerts</h2>
                {{range .Alerts}}<div style="margin: 0 0 8px 0; padding: 10px; background-color: #f9fafb; border-left: 3px solid {{severityColor .Severity}};">
                    <strong style="font-size: 14px; color: #111827;">{{.Title}}</strong>
                    <span style="font-size: 13px; color: #374151;">{{.Message}}</span>
                </div>{{end}}{{end}}

                {{if .Recommendations}}<h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Recommendations</h2>
                <ul style="margin: 0; padding-left: 20px; font-size: 14px; color: #374151;">{{range .Recommendations}}<li>{{.}}</li>{{end}}</ul>{{end}}

                <h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Trends</h2>
                <p style="margin: 0; font-size: 14px; color: #374151;">{{.Trends}}</p>

                {{if .Highlights}}<h2 style="margin: 16px 0 8px 0; font-size: 16px; color: #111827;">Highlights</h2>
                <ul style="margin: 0; padding-left: 20px; font-size: 14px; color: #374151;">{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
            </td>
        </tr>
    </table>
</body>
</html>`
