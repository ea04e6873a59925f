package policy

import (
	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// ApplyPolicy drops findings of disabled domains and rules and rewrites
// overridden severities. The input slice is not modified.
func ApplyPolicy(findings []models.Finding, domain string, cfg *PolicyConfig) []models.Finding {
	if cfg == nil {
		return findings
	}

	// Domain-level disable
	if d, ok := cfg.Domains[domain]; ok {
		if !d.Enabled {
			return []models.Finding{}
		}
	}

	result := make([]models.Finding, 0, len(findings))

	for _, f := range findings {
		ruleCfg, hasRule := cfg.Rules[f.RuleID]

		// Rule-level disable
		if hasRule && ruleCfg.Enabled != nil && !*ruleCfg.Enabled {
			continue
		}

		// Severity override
		if hasRule && ruleCfg.Severity != "" {
			if sev, ok := models.ParseSeverity(ruleCfg.Severity); ok {
				f.Severity = sev
			}
		}

		result = append(result, f)
	}

	return result
}
