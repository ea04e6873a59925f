package models

// Severity represents the impact level of a finding.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// IssueType classifies what a finding is about.
type IssueType string

const (
	IssueExternalAccess       IssueType = "External Access"
	IssueOverlyBroadAccess    IssueType = "Overly Broad Access"
	IssueMissingAccessControl IssueType = "Missing Access Control"
	IssueAccessError          IssueType = "Access Error"
)

// ResourceKind identifies the category of scanned asset a finding refers to.
type ResourceKind string

const (
	// AWS resource kinds
	KindAWSIAMRole          ResourceKind = "IAM_ROLE"
	KindAWSIAMManagedPolicy ResourceKind = "IAM_MANAGED_POLICY"
	KindAWSS3Bucket         ResourceKind = "S3_BUCKET"

	// GCP resource kinds
	KindGCPProject ResourceKind = "GCP_PROJECT"
	KindGCSBucket  ResourceKind = "GCS_BUCKET"

	// Infrastructure-as-code resource kinds
	KindTerraformPolicy ResourceKind = "TERRAFORM_POLICY"
)

// NotApplicable is the ResourceID used when a finding is not about a single
// addressable resource (e.g. a failed listing call).
const NotApplicable = "N/A"

// Finding is one detected, classified security issue.
// It is the atomic output unit of the rule engine and is never mutated after
// creation, except by policy severity overrides before aggregation.
type Finding struct {
	ResourceName   string       `json:"resource_name"`
	ResourceID     string       `json:"resource_id"`
	IssueType      IssueType    `json:"issue_type"`
	Severity       Severity     `json:"severity"`
	Description    string       `json:"description"`
	Recommendation string       `json:"recommendation"`
	RuleID         string       `json:"rule_id,omitempty"`
	ResourceKind   ResourceKind `json:"resource_kind,omitempty"`
	StatementID    string       `json:"statement_id,omitempty"`
}

// ParseSeverity maps a case-insensitive severity name to its canonical value.
func ParseSeverity(s string) (Severity, bool) {
	switch normalizeWord(s) {
	case "high":
		return SeverityHigh, true
	case "medium":
		return SeverityMedium, true
	case "low":
		return SeverityLow, true
	}
	return "", false
}

// SeverityRank orders severities; higher is more severe. Unknown values rank 0.
func SeverityRank(s Severity) int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Resource identifies one scanned asset: a bucket, a role, a managed policy,
// a project or a Terraform resource block.
type Resource struct {
	Name string
	ID   string
	Kind ResourceKind
}
