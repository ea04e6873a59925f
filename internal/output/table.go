package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// TableOptions controls how the summary and findings tables are rendered.
type TableOptions struct {
	// Colored enables severity colours. Default false (CI-safe).
	Colored bool

	// IncludeProvider adds a PROVIDER column to the findings table (useful
	// when findings from several providers are listed together).
	IncludeProvider bool
}

// severityAttrs maps each severity to its colour attributes.
var severityAttrs = map[models.Severity][]color.Attribute{
	models.SeverityHigh:   {color.FgRed, color.Bold},
	models.SeverityMedium: {color.FgYellow},
	models.SeverityLow:    {color.FgBlue},
}

// paint wraps s in the given attributes when colored is true. Colour is
// forced on so the caller's decision wins over fatih/color's TTY detection.
func paint(s string, colored bool, attrs ...color.Attribute) string {
	if !colored || len(attrs) == 0 {
		return s
	}
	c := color.New(attrs...)
	c.EnableColor()
	return c.Sprint(s)
}

// ColorSeverity returns sev, coloured when colored is true.
func ColorSeverity(sev models.Severity, colored bool) string {
	return paint(string(sev), colored, severityAttrs[sev]...)
}

// ShortenMessage truncates msg to at most max runes, appending "..." when truncated.
// max is treated as at least 4 to guarantee space for the ellipsis.
func ShortenMessage(msg string, max int) string {
	if max < 4 {
		max = 4
	}
	runes := []rune(msg)
	if len(runes) <= max {
		return msg
	}
	return string(runes[:max-3]) + "..."
}

// severityCell returns the severity padded to width characters.
// Only the text is coloured; trailing padding stays plain so later columns
// line up whether or not the terminal renders ANSI codes.
func severityCell(sev models.Severity, width int, colored bool) string {
	text := string(sev)
	pad := width - len(text)
	if pad < 0 {
		pad = 0
	}
	return ColorSeverity(sev, colored) + strings.Repeat(" ", pad)
}

// truncateField shortens s to at most max runes for ID/label columns.
// A single-char ellipsis replaces the last rune when truncation occurs.
func truncateField(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// RenderSummary writes the scan summary table: one row per scanned provider,
// in scan order.
//
// Column order:
//
//	PROVIDER  ACCOUNT ID  ISSUES  LEAST PRIVILEGE  HIGH RISK  SUMMARY  REPORT PATH
func RenderSummary(w io.Writer, results []models.ScanResult, opts TableOptions) {
	fmt.Fprintln(w, paint("Scan Summary Report", opts.Colored, color.Bold))
	if len(results) == 0 {
		fmt.Fprintln(w, "No providers scanned.")
		return
	}

	const (
		wProvider = 10
		wAccount  = 14
		wIssues   = 6
		wLeast    = 15
		wHigh     = 9
		wSummary  = 60
	)

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %-*s  %-*s  %-*s  %s",
		wProvider, "PROVIDER",
		wAccount, "ACCOUNT ID",
		wIssues, "ISSUES",
		wLeast, "LEAST PRIVILEGE",
		wHigh, "HIGH RISK",
		wSummary, "SUMMARY",
		"REPORT PATH",
	)
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for _, r := range results {
		high := fmt.Sprintf("%-*d", wHigh, r.HighRiskPermissions)
		if r.HighRiskPermissions > 0 {
			high = paint(strconv.Itoa(r.HighRiskPermissions), opts.Colored, color.FgRed) +
				strings.Repeat(" ", wHigh-len(strconv.Itoa(r.HighRiskPermissions)))
		}
		fmt.Fprintf(w, "%-*s  %-*s  %-*d  %-*d  %s  %-*s  %s\n",
			wProvider, truncateField(string(r.Provider), wProvider),
			wAccount, truncateField(r.AccountID, wAccount),
			wIssues, r.IssuesFound,
			wLeast, r.LeastPrivilegeViolations,
			high,
			wSummary, ShortenMessage(r.Summary, wSummary),
			r.ReportPath,
		)
	}
}

// RenderTable writes a formatted findings table to w.
// The separator line width is derived from the header row so all rows align.
//
// Column order:
//
//	[PROVIDER]  RESOURCE  SEVERITY  ISSUE TYPE  RULE  DESCRIPTION
func RenderTable(w io.Writer, findings []models.Finding, opts TableOptions) {
	renderFindings(w, findings, nil, opts)
}

// RenderResultFindings writes one findings table covering every result,
// tagging each row with its provider.
func RenderResultFindings(w io.Writer, results []models.ScanResult, opts TableOptions) {
	var findings []models.Finding
	var providers []models.Provider
	for _, r := range results {
		for _, f := range r.Findings {
			findings = append(findings, f)
			providers = append(providers, r.Provider)
		}
	}
	opts.IncludeProvider = true
	renderFindings(w, findings, providers, opts)
}

func renderFindings(w io.Writer, findings []models.Finding, providers []models.Provider, opts TableOptions) {
	if len(findings) == 0 {
		fmt.Fprintln(w, "No findings.")
		return
	}

	const (
		wProvider = 10
		wResource = 36
		wSeverity = 8
		wIssue    = 22
		wRule     = 22
		wDesc     = 60
	)

	var hb strings.Builder
	if opts.IncludeProvider {
		hb.WriteString(fmt.Sprintf("%-*s  ", wProvider, "PROVIDER"))
	}
	hb.WriteString(fmt.Sprintf("%-*s", wResource, "RESOURCE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wSeverity, "SEVERITY"))
	hb.WriteString(fmt.Sprintf("  %-*s", wIssue, "ISSUE TYPE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wRule, "RULE"))
	hb.WriteString(fmt.Sprintf("  %-*s", wDesc, "DESCRIPTION"))
	header := strings.TrimRight(hb.String(), " ")

	fmt.Fprintln(w, header)
	fmt.Fprintln(w, strings.Repeat("-", len(header)))

	for i, f := range findings {
		var rb strings.Builder
		if opts.IncludeProvider {
			var p models.Provider
			if i < len(providers) {
				p = providers[i]
			}
			rb.WriteString(fmt.Sprintf("%-*s  ", wProvider, truncateField(string(p), wProvider)))
		}
		rb.WriteString(fmt.Sprintf("%-*s", wResource, truncateField(f.ResourceName, wResource)))
		rb.WriteString("  " + severityCell(f.Severity, wSeverity, opts.Colored))
		rb.WriteString(fmt.Sprintf("  %-*s", wIssue, truncateField(string(f.IssueType), wIssue)))
		rb.WriteString(fmt.Sprintf("  %-*s", wRule, truncateField(f.RuleID, wRule)))
		rb.WriteString(fmt.Sprintf("  %s", ShortenMessage(f.Description, wDesc)))
		fmt.Fprintln(w, rb.String())
	}
}
