package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func writeTestReport(t *testing.T) string {
	t.Helper()
	report := models.Report{
		ReportID:    "rep-42",
		GeneratedAt: time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC),
		Result: models.ScanResult{
			Provider:    models.ProviderAWS,
			AccountID:   testAccount,
			IssuesFound: 2,
			Summary:     "Scanned IAM and S3 policies. Found 2 security issues.",
			Findings: []models.Finding{
				{ResourceName: "public-assets", IssueType: models.IssueExternalAccess, Severity: models.SeverityHigh, Description: "Public access"},
				{ResourceName: "admin-role", IssueType: models.IssueOverlyBroadAccess, Severity: models.SeverityHigh, Description: "Administrative access granted"},
			},
		},
	}
	data, err := json.Marshal(report)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "aws_report.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--config", filepath.Join(t.TempDir(), "none.yaml")}, args...))
	err := root.Execute()
	return out.String(), err
}

// ── report show ──────────────────────────────────────────────────────────────

func TestReportShow_Table(t *testing.T) {
	out, err := execute(t, "report", "show", writeTestReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, "rep-42")
	assert.Contains(t, out, "public-assets")
	assert.Contains(t, out, "admin-role")
}

func TestReportShow_IssueFilter(t *testing.T) {
	out, err := execute(t, "report", "show", "--issue", "External Access", writeTestReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, "public-assets")
	assert.NotContains(t, out, "admin-role")
}

func TestReportShow_Flat(t *testing.T) {
	out, err := execute(t, "report", "show", "--flat", writeTestReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, "SEVERITY")
	assert.Contains(t, out, "public-assets")
	assert.NotContains(t, out, "External Access (1):")
}

func TestReportShow_JSON(t *testing.T) {
	out, err := execute(t, "report", "show", "--format", "json", writeTestReport(t))
	require.NoError(t, err)
	assert.Contains(t, out, `"rep-42"`)
}

func TestReportShow_UnknownFormat(t *testing.T) {
	_, err := execute(t, "report", "show", "--format", "xml", writeTestReport(t))
	assert.Error(t, err)
}

func TestReportShow_MissingFile(t *testing.T) {
	_, err := execute(t, "report", "show", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read report")
}

// ── allRuleIDs ───────────────────────────────────────────────────────────────

func TestAllRuleIDs(t *testing.T) {
	ids := allRuleIDs()
	assert.Contains(t, ids, rules.AccessErrorRuleID)

	seen := make(map[string]bool)
	for _, id := range ids {
		assert.False(t, seen[id], "duplicate rule ID %s", id)
		seen[id] = true
	}
}
