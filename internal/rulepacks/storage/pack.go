// Package storage provides the rule pack for storage bucket policies
// (S3 bucket policies, GCS bucket IAM, Terraform aws_s3_bucket_policy).
//
// Convention: every rule pack lives in internal/rulepacks/<domain>/pack.go
// and exposes a single New() func returning []rules.Rule. Order matters:
// findings for one statement are emitted in pack order.
package storage

import "github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"

// New returns the bucket-policy rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.ExternalAccessRule{},      // HIGH:   principal outside the account
		rules.WildcardPermissionRule{},  // MEDIUM: wildcard action, or unconditioned "/*" resource
		rules.MissingPrefixFilterRule{}, // MEDIUM: broad object action over "/*" without a prefix key
	}
}
