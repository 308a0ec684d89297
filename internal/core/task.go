package core

import (
	"encoding/json"
	"fmt"
)

// UnknownRepo is the sentinel repository name used when a payload carries no
// repository identity.
const UnknownRepo = "unknown/repo"

// ReviewType selects how much detail the review backend is asked for.
type ReviewType string

const (
	// ReviewDetailed requests line-anchored comments plus a summary.
	ReviewDetailed ReviewType = "detailed"
	// ReviewGeneral requests a summary-level review only.
	ReviewGeneral ReviewType = "general"
)

// ReviewFile is a single changed file carried inside a webhook payload.
// Content and Diff are both optional; a file may arrive with either or neither.
type ReviewFile struct {
	Path    string `json:"path"`
	Content string `json:"content,omitempty"`
	Diff    string `json:"diff,omitempty"`
}

// QueuedTask is the wire form the webhook handler places on the task stream.
// Payload preserves the original provider event verbatim so the consumer can
// normalize it without the handler understanding provider schemas.
type QueuedTask struct {
	Provider      Provider        `json:"provider"`
	EventID       string          `json:"eventId"`
	ReviewType    ReviewType      `json:"reviewType,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	FilesToReview []ReviewFile    `json:"filesToReview,omitempty"`
}

// Repository identifies the repo or project an event belongs to.
type Repository struct {
	ID            int64
	FullName      string
	DefaultBranch string
}

// PullRequestRef locates a GitHub pull request and where its comments go.
type PullRequestRef struct {
	Number      int
	Title       string
	CommentsURL string
	HeadSHA     string
}

// MergeRequestRef locates a GitLab merge request by project and IID.
type MergeRequestRef struct {
	IID       int
	ProjectID int64
	Title     string
	NotesURL  string
}

// ReviewTask is the normalized unit of work the consumer processes. Exactly one
// of PullRequest or MergeRequest is set, matching Provider.
type ReviewTask struct {
	Provider      Provider
	EventID       string
	ReviewType    ReviewType
	Repo          Repository
	PullRequest   *PullRequestRef
	MergeRequest  *MergeRequestRef
	FilesToReview []ReviewFile

	// Instructions holds extra reviewer guidance from the repo policy file.
	Instructions []string
}

// TargetNumber returns the PR number or MR IID the task points at, or zero when
// the reference is missing.
func (t *ReviewTask) TargetNumber() int {
	switch {
	case t.PullRequest != nil:
		return t.PullRequest.Number
	case t.MergeRequest != nil:
		return t.MergeRequest.IID
	default:
		return 0
	}
}

// Key builds the composite identity outcomes are stored under.
func (t *ReviewTask) Key() string {
	return BuildTaskKey(t.Provider, t.Repo.FullName, t.TargetNumber(), t.EventID)
}

// BuildTaskKey assembles the provider:repo:number:eventID composite key.
func BuildTaskKey(p Provider, repoFullName string, number int, eventID string) string {
	return fmt.Sprintf("%s:%s:%d:%s", p, repoFullName, number, eventID)
}
