package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sevigo/review-relay/internal/core"
)

var (
	ErrPolicyNotFound = errors.New("policy file not found")
	ErrPolicyParsing  = errors.New("policy parsing failed")
)

// Policy is the parsed review-policy.yml: a default policy plus per-repo
// overrides keyed by repository full name.
type Policy struct {
	Default core.RepoPolicy            `yaml:"default"`
	Repos   map[string]core.RepoPolicy `yaml:"repos"`
}

// LoadPolicy loads and parses the review policy file. A missing file is not
// fatal; callers get built-in defaults and the sentinel to decide how loudly
// to report it.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Policy{Default: *core.DefaultRepoPolicy()}, ErrPolicyNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	policy := &Policy{Default: *core.DefaultRepoPolicy()}
	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPolicyParsing, err)
	}
	return policy, nil
}

// ForRepo resolves the effective policy for a repository, filling gaps in the
// per-repo override from the default section.
func (p *Policy) ForRepo(fullName string) *core.RepoPolicy {
	resolved := p.Default
	if resolved.ReviewType == "" {
		resolved.ReviewType = core.ReviewDetailed
	}

	override, ok := p.Repos[fullName]
	if !ok {
		return &resolved
	}
	if override.ReviewType != "" {
		resolved.ReviewType = override.ReviewType
	}
	if len(override.CustomInstructions) > 0 {
		resolved.CustomInstructions = override.CustomInstructions
	}
	if len(override.ExcludeExts) > 0 {
		resolved.ExcludeExts = override.ExcludeExts
	}
	if override.MaxFiles > 0 {
		resolved.MaxFiles = override.MaxFiles
	}
	return &resolved
}
