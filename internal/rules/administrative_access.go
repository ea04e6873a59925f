package rules

import "github.com/pankaj-dahiya-devops/lock-and-key/internal/models"

// AdministrativeAccessRule flags identity statements that grant every action
// on every resource ("Action": "*" with "Resource": "*").
type AdministrativeAccessRule struct{}

func (r AdministrativeAccessRule) ID() string   { return "ADMINISTRATIVE_ACCESS" }
func (r AdministrativeAccessRule) Name() string { return "Administrative Access" }

// Evaluate returns at most one HIGH finding for the statement in ctx.
func (r AdministrativeAccessRule) Evaluate(ctx RuleContext) []models.Finding {
	s := ctx.Statement
	if !containsAny(s.Actions(), "*", "*:*") || !containsAny(s.Resources(), "*") {
		return nil
	}
	return []models.Finding{newFinding(ctx, r.ID(),
		models.IssueOverlyBroadAccess,
		models.SeverityHigh,
		"Administrative access granted (Action * on Resource *)",
		"Replace full administrative grants with task-scoped policies",
	)}
}

func containsAny(values []string, want ...string) bool {
	for _, v := range values {
		for _, w := range want {
			if v == w {
				return true
			}
		}
	}
	return false
}
