// Package render provides presentation helpers for saved scan reports.
// It only reads and formats reports; it never contacts a provider.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// LoadReport reads a report file written by lk scan.
func LoadReport(path string) (*models.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r models.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}

// FilterByIssue returns the findings whose issue type matches issue,
// case-insensitively. An empty issue returns findings unchanged.
func FilterByIssue(findings []models.Finding, issue string) []models.Finding {
	if issue == "" {
		return findings
	}
	var out []models.Finding
	for _, f := range findings {
		if strings.EqualFold(string(f.IssueType), issue) {
			out = append(out, f)
		}
	}
	return out
}

// RenderReport writes a breakdown of one report to w. Findings are grouped
// by issue type; groups are sorted by name and keep finding order inside.
//
// Example output:
//
//	REPORT 5b0f2c8e-... (AWS 111122223333)
//	Generated: 2026-10-17T09:30:00Z
//	Scanned IAM and S3 policies. Found 2 security issues.
//
//	External Access (1):
//
//	  ✗ b1 [High] EXTERNAL_ACCESS
//	    External account access detected
//	    → Restrict access to trusted accounts only
func RenderReport(w io.Writer, r *models.Report, findings []models.Finding) {
	res := r.Result
	fmt.Fprintf(w, "REPORT %s (%s %s)\n", r.ReportID, res.Provider, res.AccountID)
	fmt.Fprintf(w, "Generated: %s\n", r.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"))
	fmt.Fprintln(w, res.Summary)

	if len(findings) == 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No findings.")
		return
	}

	groups := make(map[models.IssueType][]models.Finding)
	var order []models.IssueType
	for _, f := range findings {
		if _, seen := groups[f.IssueType]; !seen {
			order = append(order, f.IssueType)
		}
		groups[f.IssueType] = append(groups[f.IssueType], f)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	for _, issue := range order {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "%s (%d):\n", issue, len(groups[issue]))
		for _, f := range groups[issue] {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "  ✗ %s [%s] %s\n", f.ResourceName, f.Severity, f.RuleID)
			if f.StatementID != "" {
				fmt.Fprintf(w, "    statement %s\n", f.StatementID)
			}
			fmt.Fprintf(w, "    %s\n", f.Description)
			fmt.Fprintf(w, "    → %s\n", f.Recommendation)
		}
	}
}

// WriteReportJSON writes the report as indented JSON with its findings
// replaced by findings.
func WriteReportJSON(w io.Writer, r *models.Report, findings []models.Finding) error {
	out := *r
	out.Result.Findings = findings
	if out.Result.Findings == nil {
		out.Result.Findings = []models.Finding{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
