package rules

import (
	"strings"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

// WildcardPermissionRule flags statements with a wildcard action, or with a
// resource ending in "/*" when the statement carries no condition block.
//
// Any condition block suppresses the resource half of the check, whether or
// not its keys restrict the matched objects.
type WildcardPermissionRule struct{}

func (r WildcardPermissionRule) ID() string   { return "WILDCARD_PERMISSION" }
func (r WildcardPermissionRule) Name() string { return "Wildcard Permission" }

// Evaluate returns at most one MEDIUM finding for the statement in ctx.
func (r WildcardPermissionRule) Evaluate(ctx RuleContext) []models.Finding {
	s := ctx.Statement
	if !hasWildcardAction(s.Actions()) && !(hasWildcardResource(s.Resources()) && !s.HasConditions()) {
		return nil
	}
	return []models.Finding{newFinding(ctx, r.ID(),
		models.IssueOverlyBroadAccess,
		models.SeverityMedium,
		"Wildcard permissions (*) detected",
		"Use specific actions and resource paths",
	)}
}

func hasWildcardAction(actions []string) bool {
	for _, a := range actions {
		if strings.Contains(a, "*") {
			return true
		}
	}
	return false
}

func hasWildcardResource(resources []string) bool {
	return policydoc.HasSuffixAny(resources, "/*")
}
