package rules

import (
	"strconv"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/policydoc"
)

// RuleContext carries one policy statement and everything needed to judge it.
// It is the sole input to Rule.Evaluate; rules must never make network calls
// or read external state.
type RuleContext struct {
	// Statement is the clause under evaluation.
	Statement policydoc.Statement

	// StatementIndex is the zero-based position of Statement in its document.
	// It identifies statements that carry no Sid.
	StatementIndex int

	// AccountID is the account under scan. The external-access rule treats any
	// principal identity not containing it as foreign.
	AccountID string

	// Resource is the asset whose policy contains Statement.
	Resource models.Resource
}

// Rule is a single deterministic policy-analysis rule.
// Rules must be stateless and safe to call concurrently.
type Rule interface {
	// ID returns the unique, stable identifier for this rule (e.g. "EXTERNAL_ACCESS").
	ID() string

	// Name returns a short human-readable rule name.
	Name() string

	// Evaluate inspects the statement in ctx and returns zero or more findings.
	Evaluate(ctx RuleContext) []models.Finding
}

// RuleRegistry manages the set of active rules and drives evaluation.
type RuleRegistry interface {
	// Register adds a rule to the registry. Panics on duplicate ID.
	Register(rule Rule)

	// All returns all registered rules in registration order.
	All() []Rule

	// EvaluateAll runs every registered rule against ctx and merges results.
	EvaluateAll(ctx RuleContext) []models.Finding
}

// statementID returns the Sid of the statement in ctx, or "#<index>" when it
// has none.
func statementID(ctx RuleContext) string {
	if sid := ctx.Statement.Sid(); sid != "" {
		return sid
	}
	return "#" + strconv.Itoa(ctx.StatementIndex)
}

// newFinding fills the resource and statement fields shared by every rule.
func newFinding(ctx RuleContext, ruleID string, issue models.IssueType, sev models.Severity, description, recommendation string) models.Finding {
	return models.Finding{
		ResourceName:   ctx.Resource.Name,
		ResourceID:     ctx.Resource.ID,
		IssueType:      issue,
		Severity:       sev,
		Description:    description,
		Recommendation: recommendation,
		RuleID:         ruleID,
		ResourceKind:   ctx.Resource.Kind,
		StatementID:    statementID(ctx),
	}
}
