package models

import (
	"strings"
	"time"
)

// Provider names a cloud (or offline) source of access policies.
type Provider string

const (
	ProviderAWS       Provider = "AWS"
	ProviderGCP       Provider = "GCP"
	ProviderTerraform Provider = "Terraform"
)

// Providers lists every supported provider in menu order.
var Providers = []Provider{ProviderAWS, ProviderGCP, ProviderTerraform}

// Description returns the long provider name shown in menus.
func (p Provider) Description() string {
	switch p {
	case ProviderAWS:
		return "Amazon Web Services"
	case ProviderGCP:
		return "Google Cloud Platform"
	case ProviderTerraform:
		return "Terraform configuration (offline)"
	}
	return string(p)
}

// ParseProvider maps a case-insensitive provider name to its canonical value.
func ParseProvider(s string) (Provider, bool) {
	for _, p := range Providers {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, true
		}
	}
	return "", false
}

// UnknownAccount is the account ID of a scan that never reached the provider.
const UnknownAccount = "unknown"

// ScanResult is the outcome of scanning one provider account.
//
// IssuesFound always equals len(Findings) and HighRiskPermissions always
// equals the number of High findings; both are derived by the engine and
// never set independently.
type ScanResult struct {
	Provider                 Provider  `json:"provider"`
	AccountID                string    `json:"account_id"`
	IssuesFound              int       `json:"issues_found"`
	LeastPrivilegeViolations int       `json:"least_privilege_violations"`
	HighRiskPermissions      int       `json:"high_risk_permissions"`
	Summary                  string    `json:"summary"`
	ReportPath               string    `json:"report_path"`
	Findings                 []Finding `json:"findings"`
}

// Failed reports whether the result is the degenerate outcome of a provider
// that could not be reached at all.
func (r ScanResult) Failed() bool {
	return r.AccountID == UnknownAccount && r.ReportPath == ""
}

// ScanSummary collects one ScanResult per scanned provider in the order the
// providers were scanned. It lives for one scan session only.
type ScanSummary struct {
	results []ScanResult
}

// AddResult appends result to the summary.
func (s *ScanSummary) AddResult(result ScanResult) {
	s.results = append(s.results, result)
}

// Results returns the collected results in insertion order.
// The returned slice is a copy; callers may not mutate the summary through it.
func (s *ScanSummary) Results() []ScanResult {
	out := make([]ScanResult, len(s.results))
	copy(out, s.results)
	return out
}

// Len returns the number of collected results.
func (s *ScanSummary) Len() int { return len(s.results) }

// AllFindings returns every finding across all results, in result order.
func (s *ScanSummary) AllFindings() []Finding {
	var out []Finding
	for _, r := range s.results {
		out = append(out, r.Findings...)
	}
	return out
}

// Report is the on-disk JSON document written for one ScanResult.
type Report struct {
	ReportID    string     `json:"report_id"`
	GeneratedAt time.Time  `json:"generated_at"`
	Result      ScanResult `json:"result"`
}

func normalizeWord(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
