package policy

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultPolicyFile is looked up in the working directory when --policy is
// not given.
const DefaultPolicyFile = "lk.yaml"

func LoadPolicy(path string) (*PolicyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg PolicyConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse policy file %q: %w", path, err)
	}

	if cfg.Version != 1 {
		return nil, errors.New("unsupported policy version")
	}

	if cfg.Domains == nil {
		cfg.Domains = make(map[string]DomainConfig)
	}

	if cfg.Rules == nil {
		cfg.Rules = make(map[string]RuleConfig)
	}

	if cfg.Enforcement == nil {
		cfg.Enforcement = make(map[string]EnforcementConfig)
	}

	return &cfg, nil
}

// LoadOptional loads path when it is set. With an empty path it loads
// DefaultPolicyFile if that file exists and returns nil otherwise.
func LoadOptional(path string) (*PolicyConfig, error) {
	if path != "" {
		return LoadPolicy(path)
	}
	if _, err := os.Stat(DefaultPolicyFile); err != nil {
		return nil, nil
	}
	return LoadPolicy(DefaultPolicyFile)
}
