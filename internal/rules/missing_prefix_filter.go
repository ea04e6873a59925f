package rules

import (
	"strings"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// broadObjectActions are the object-level actions that need a prefix
// condition when granted over a "/*" resource.
var broadObjectActions = map[string]struct{}{
	"s3:GetObject":    {},
	"s3:PutObject":    {},
	"s3:DeleteObject": {},
	"GetObject":       {},
	"PutObject":       {},
	"DeleteObject":    {},
}

// MissingPrefixFilterRule flags statements that grant broad object actions
// over every object under a path without a prefix-restricting condition.
//
// The rule applies only when the statement has a broad action (one of
// broadObjectActions, or any action containing "*") and a resource ending in
// "/*". A condition key whose lower-cased form contains "prefix" or "key",
// under any operator, counts as a prefix filter.
type MissingPrefixFilterRule struct{}

func (r MissingPrefixFilterRule) ID() string   { return "MISSING_PREFIX_FILTER" }
func (r MissingPrefixFilterRule) Name() string { return "Missing Prefix Filter" }

// Evaluate returns at most one MEDIUM finding for the statement in ctx.
func (r MissingPrefixFilterRule) Evaluate(ctx RuleContext) []models.Finding {
	s := ctx.Statement
	if !hasBroadAction(s.Actions()) || !hasWildcardResource(s.Resources()) {
		return nil
	}
	if hasPrefixCondition(s.ConditionKeys()) {
		return nil
	}
	return []models.Finding{newFinding(ctx, r.ID(),
		models.IssueMissingAccessControl,
		models.SeverityMedium,
		"Missing prefix filter for broad permissions",
		"Add prefix-based conditions to limit access scope",
	)}
}

func hasBroadAction(actions []string) bool {
	for _, a := range actions {
		if _, ok := broadObjectActions[a]; ok || strings.Contains(a, "*") {
			return true
		}
	}
	return false
}

func hasPrefixCondition(keys []string) bool {
	for _, k := range keys {
		lk := strings.ToLower(k)
		if strings.Contains(lk, "prefix") || strings.Contains(lk, "key") {
			return true
		}
	}
	return false
}
