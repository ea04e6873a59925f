package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// localAccount names the report file of a scan with no account identity
// (an offline Terraform scan without --account-id).
const localAccount = "local"

// scopeFor returns the text that follows "Scanned " in a result summary.
func scopeFor(p models.Provider) string {
	switch p {
	case models.ProviderAWS:
		return "IAM and S3 policies"
	case models.ProviderGCP:
		return "project IAM and GCS bucket policies"
	case models.ProviderTerraform:
		return "Terraform policy documents"
	}
	return string(p) + " policies"
}

// BuildScanResult aggregates findings into a ScanResult.
//
// IssuesFound is len(findings) and HighRiskPermissions counts High findings.
// LeastPrivilegeViolations counts findings whose description contains
// "wildcard" in any case, or "Administrative" with exactly that casing.
func BuildScanResult(provider models.Provider, accountID string, findings []models.Finding, reportDir string) models.ScanResult {
	if findings == nil {
		findings = []models.Finding{}
	}
	var leastPriv, highRisk int
	for _, f := range findings {
		if isLeastPrivilegeViolation(f) {
			leastPriv++
		}
		if f.Severity == models.SeverityHigh {
			highRisk++
		}
	}

	return models.ScanResult{
		Provider:                 provider,
		AccountID:                accountID,
		IssuesFound:              len(findings),
		LeastPrivilegeViolations: leastPriv,
		HighRiskPermissions:      highRisk,
		Summary:                  fmt.Sprintf("Scanned %s. Found %d security issues.", scopeFor(provider), len(findings)),
		ReportPath:               ReportPath(reportDir, provider, accountID),
		Findings:                 findings,
	}
}

func isLeastPrivilegeViolation(f models.Finding) bool {
	return strings.Contains(strings.ToLower(f.Description), "wildcard") ||
		strings.Contains(f.Description, "Administrative")
}

// ReportPath returns <dir>/<provider>_report_<account>.json.
func ReportPath(dir string, provider models.Provider, accountID string) string {
	if accountID == "" {
		accountID = localAccount
	}
	name := fmt.Sprintf("%s_report_%s.json", strings.ToLower(string(provider)), accountID)
	return filepath.Join(dir, name)
}

// FailedScanResult is the outcome of a provider that could not be reached.
func FailedScanResult(provider models.Provider, err error) models.ScanResult {
	return models.ScanResult{
		Provider:  provider,
		AccountID: models.UnknownAccount,
		Summary:   fmt.Sprintf("Failed to scan %s: %v", provider, err),
		Findings:  []models.Finding{},
	}
}
