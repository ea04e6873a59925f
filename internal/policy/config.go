// Package policy loads and applies the lk.yaml policy file: per-provider
// enablement, per-rule enable/severity overrides and severity enforcement.
package policy

import "sort"

// PolicyConfig is the parsed lk.yaml document. Domain keys are lower-case
// provider names: aws, gcp, terraform.
type PolicyConfig struct {
	Version     int                          `yaml:"version"`
	Domains     map[string]DomainConfig      `yaml:"domains"`
	Rules       map[string]RuleConfig        `yaml:"rules"`
	Enforcement map[string]EnforcementConfig `yaml:"enforcement"`
}

type DomainConfig struct {
	Enabled bool `yaml:"enabled"`
}

type RuleConfig struct {
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Severity string `yaml:"severity,omitempty"`
}

// EnforcementConfig makes a scan exit non-zero when any finding for the
// domain reaches FailOnSeverity.
type EnforcementConfig struct {
	FailOnSeverity string `yaml:"fail_on_severity,omitempty"`
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
