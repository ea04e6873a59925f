// Package identity provides the rule pack for identity policies: IAM role
// trust policies, customer managed policies, GCP project IAM and Terraform
// IAM policy documents.
package identity

import "github.com/pankaj-dahiya-devops/lock-and-key/internal/rules"

// New returns the identity-policy rule pack.
func New() []rules.Rule {
	return []rules.Rule{
		rules.ExternalAccessRule{},       // HIGH:   trust or grant to a foreign principal
		rules.WildcardPermissionRule{},   // MEDIUM: wildcard action or resource
		rules.AdministrativeAccessRule{}, // HIGH:   Action * on Resource *
		rules.MissingPrefixFilterRule{},  // MEDIUM: broad object action over "/*"
	}
}
