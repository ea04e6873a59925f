package rules

import "github.com/pankaj-dahiya-devops/lock-and-key/internal/models"

// AccessErrorRuleID is the rule ID carried by synthesized access-error
// findings. Policy files can override its severity like any other rule.
const AccessErrorRuleID = "ACCESS_ERROR"

// ListingErrorFinding reports that a whole resource collection could not be
// listed. It is MEDIUM and carries the collection name, not a resource.
func ListingErrorFinding(collection string, kind models.ResourceKind, description, recommendation string) models.Finding {
	return models.Finding{
		ResourceName:   collection,
		ResourceID:     models.NotApplicable,
		IssueType:      models.IssueAccessError,
		Severity:       models.SeverityMedium,
		Description:    description,
		Recommendation: recommendation,
		RuleID:         AccessErrorRuleID,
		ResourceKind:   kind,
	}
}

// FetchErrorFinding reports that one resource's policy could not be fetched
// or parsed. It is LOW and scoped to res.
func FetchErrorFinding(res models.Resource, description, recommendation string) models.Finding {
	return models.Finding{
		ResourceName:   res.Name,
		ResourceID:     res.ID,
		IssueType:      models.IssueAccessError,
		Severity:       models.SeverityLow,
		Description:    description,
		Recommendation: recommendation,
		RuleID:         AccessErrorRuleID,
		ResourceKind:   res.Kind,
	}
}
