package core

// RepoPolicy holds per-repository review overrides from the policy file.
type RepoPolicy struct {
	// ReviewType overrides the default review depth for the repo.
	ReviewType ReviewType `yaml:"review_type"`

	// Custom instructions appended to the reviewer prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Exclusion of files based on their extension.
	// The leading dot is optional. Example: [".md", "lock", ".log"]
	ExcludeExts []string `yaml:"exclude_exts"`

	// MaxFiles caps how many changed files are sent for review. Zero means no cap.
	MaxFiles int `yaml:"max_files"`
}

// DefaultRepoPolicy returns a policy with default values.
func DefaultRepoPolicy() *RepoPolicy {
	return &RepoPolicy{
		ReviewType:         ReviewDetailed,
		CustomInstructions: []string{},
		ExcludeExts:        []string{},
	}
}
