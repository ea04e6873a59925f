package rules

import (
	"strings"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

// ExternalAccessRule flags statements that grant access to principals outside
// the scanned account.
//
// A principal is considered external when it is the literal "*", when its
// identity list contains "*", or when any identity does not contain the
// account ID as a substring. The substring test is a lexical heuristic and
// deliberately stops short of ARN parsing: "arn:aws:iam::111122223333:root"
// and a bare "111122223333" both count as internal. Service and federated
// principals are not identities and are ignored.
type ExternalAccessRule struct{}

func (r ExternalAccessRule) ID() string   { return "EXTERNAL_ACCESS" }
func (r ExternalAccessRule) Name() string { return "External Account Access" }

// Evaluate returns at most one HIGH finding for the statement in ctx.
func (r ExternalAccessRule) Evaluate(ctx RuleContext) []models.Finding {
	if !grantsExternalAccess(ctx.Statement.Principal(), ctx.AccountID) {
		return nil
	}
	return []models.Finding{newFinding(ctx, r.ID(),
		models.IssueExternalAccess,
		models.SeverityHigh,
		"External account access detected",
		"Restrict access to trusted accounts only",
	)}
}

func grantsExternalAccess(p policydoc.Principal, accountID string) bool {
	switch p.Kind() {
	case policydoc.PrincipalWildcard:
		return true
	case policydoc.PrincipalIdentities:
		for _, id := range p.Identities() {
			if id == "*" || !strings.Contains(id, accountID) {
				return true
			}
		}
	}
	return false
}
