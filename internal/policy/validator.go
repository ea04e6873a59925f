package policy

import (
	"fmt"

	"github.com/pankaj-dahiya-devops/lock-and-key/internal/models"
)

// validDomains is the set of recognised domain names: one per provider.
var validDomains = map[string]struct{}{
	"aws":       {},
	"gcp":       {},
	"terraform": {},
}

const validDomainList = "aws, gcp, terraform"

const validSeverityList = "High, Medium, Low"

// DomainFor returns the policy domain key of provider p.
func DomainFor(p models.Provider) string {
	switch p {
	case models.ProviderAWS:
		return "aws"
	case models.ProviderGCP:
		return "gcp"
	case models.ProviderTerraform:
		return "terraform"
	}
	return string(p)
}

// Validate checks cfg for semantic correctness and returns all validation errors
// found. An empty slice means the config is valid.
//
// Checks performed:
//   - version must be 1
//   - domain names must be one of: aws, gcp, terraform
//   - rule IDs must appear in availableRuleIDs
//   - rule severity overrides must be valid severity values if set
//   - enforcement domain names must be one of: aws, gcp, terraform
//   - enforcement fail_on_severity must be a valid severity value if set
//
// All errors are collected before returning; Validate never stops at the first error.
func Validate(cfg *PolicyConfig, availableRuleIDs []string) []error {
	if cfg == nil {
		return []error{fmt.Errorf("policy config is nil")}
	}

	knownIDs := make(map[string]struct{}, len(availableRuleIDs))
	for _, id := range availableRuleIDs {
		knownIDs[id] = struct{}{}
	}

	var errs []error

	if cfg.Version != 1 {
		errs = append(errs, fmt.Errorf("version: unsupported value %d; must be 1", cfg.Version))
	}

	for _, name := range sortedKeys(cfg.Domains) {
		if _, ok := validDomains[name]; !ok {
			errs = append(errs, fmt.Errorf("domains.%s: unknown domain; valid values: %s", name, validDomainList))
		}
	}

	for _, ruleID := range sortedKeys(cfg.Rules) {
		rcfg := cfg.Rules[ruleID]
		if _, ok := knownIDs[ruleID]; !ok {
			errs = append(errs, fmt.Errorf("rules.%s: unknown rule ID", ruleID))
		}
		if rcfg.Severity != "" {
			if _, ok := models.ParseSeverity(rcfg.Severity); !ok {
				errs = append(errs, fmt.Errorf("rules.%s.severity: invalid value %q; valid values: %s", ruleID, rcfg.Severity, validSeverityList))
			}
		}
	}

	for _, domain := range sortedKeys(cfg.Enforcement) {
		enfCfg := cfg.Enforcement[domain]
		if _, ok := validDomains[domain]; !ok {
			errs = append(errs, fmt.Errorf("enforcement.%s: unknown domain; valid values: %s", domain, validDomainList))
		}
		if enfCfg.FailOnSeverity != "" {
			if _, ok := models.ParseSeverity(enfCfg.FailOnSeverity); !ok {
				errs = append(errs, fmt.Errorf("enforcement.%s.fail_on_severity: invalid value %q; valid values: %s", domain, enfCfg.FailOnSeverity, validSeverityList))
			}
		}
	}

	return errs
}
