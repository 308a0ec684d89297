package provider

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

const (
	gitlabTokenHeader     = "X-Gitlab-Token"
	gitlabEventUUIDHeader = "X-Gitlab-Event-UUID"
)

// GitLabStrategy implements Strategy for GitLab webhooks.
type GitLabStrategy struct {
	secret  string
	baseURL string
	logger  *slog.Logger
}

// NewGitLab builds the GitLab strategy from validated configuration.
func NewGitLab(cfg config.GitLabConfig, logger *slog.Logger) *GitLabStrategy {
	return &GitLabStrategy{
		secret:  cfg.WebhookSecret,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  logger,
	}
}

func (s *GitLabStrategy) Provider() core.Provider {
	return core.ProviderGitLab
}

// VerifySignature compares the plaintext token header against the configured
// secret in constant time.
func (s *GitLabStrategy) VerifySignature(header http.Header, _ []byte) bool {
	if s.secret == "" {
		s.logger.Error("gitlab webhook secret not configured, rejecting delivery")
		return false
	}

	token := header.Get(gitlabTokenHeader)
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) == 1
}

// gitlabEventProbe mirrors just the payload fields identity derivation needs.
type gitlabEventProbe struct {
	ObjectKind string `json:"object_kind"`
	Ref        string `json:"ref"`
	After      string `json:"after"`
	ProjectID  int64  `json:"project_id"`
	Project    *struct {
		ID int64 `json:"id"`
	} `json:"project"`
	ObjectAttributes *struct {
		ID         int64 `json:"id"`
		IID        int   `json:"iid"`
		LastCommit struct {
			ID string `json:"id"`
		} `json:"last_commit"`
	} `json:"object_attributes"`
}

// DeriveEventID prefers the per-delivery event UUID header, which GitLab sends
// on most hook types; payload-derived composites cover the rest.
func (s *GitLabStrategy) DeriveEventID(header http.Header, body []byte) string {
	if eventUUID := header.Get(gitlabEventUUIDHeader); eventUUID != "" {
		return eventUUID
	}

	var p gitlabEventProbe
	if err := json.Unmarshal(body, &p); err != nil {
		return "gl:err:" + uuid.NewString()
	}

	projectID := p.ProjectID
	if projectID == 0 && p.Project != nil {
		projectID = p.Project.ID
	}

	if p.ObjectKind == "merge_request" && p.ObjectAttributes != nil && p.ObjectAttributes.IID != 0 && projectID != 0 {
		sha := p.ObjectAttributes.LastCommit.ID
		if sha == "" {
			sha = "unknown_sha"
		}
		return fmt.Sprintf("gl:mr:%d:%d:%s", projectID, p.ObjectAttributes.IID, sha)
	}

	if p.Ref != "" && p.After != "" && projectID != 0 {
		return fmt.Sprintf("gl:push:%d:%s:%s", projectID, p.Ref, p.After)
	}

	if p.ObjectKind == "note" && p.ObjectAttributes != nil && p.ObjectAttributes.ID != 0 && projectID != 0 {
		return fmt.Sprintf("gl:note:%d:%d", projectID, p.ObjectAttributes.ID)
	}

	return "gl:rand:" + uuid.NewString()
}

// gitlabPayload mirrors the fields task normalization needs.
type gitlabPayload struct {
	ObjectKind string `json:"object_kind"`
	Project    *struct {
		ID                int64  `json:"id"`
		PathWithNamespace string `json:"path_with_namespace"`
		DefaultBranch     string `json:"default_branch"`
	} `json:"project"`
	ObjectAttributes *struct {
		IID   int    `json:"iid"`
		Title string `json:"title"`
	} `json:"object_attributes"`
}

// NormalizeTask builds the provider-agnostic task for a merge request payload.
// The notes URL is derived by templating project id and MR IID, since GitLab
// payloads do not carry a comment-submission URL.
func (s *GitLabStrategy) NormalizeTask(task *core.QueuedTask) (*core.ReviewTask, error) {
	var p gitlabPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to parse gitlab payload: %w", err)
	}

	if p.ObjectAttributes == nil || p.ObjectAttributes.IID == 0 {
		return nil, fmt.Errorf("gitlab payload carries no merge request to review")
	}

	// ReviewType is carried through as queued, empty or not; the review job
	// resolves missing types against the repo policy.
	rt := &core.ReviewTask{
		Provider:      core.ProviderGitLab,
		EventID:       task.EventID,
		ReviewType:    task.ReviewType,
		Repo:          core.Repository{FullName: core.UnknownRepo},
		FilesToReview: task.FilesToReview,
	}

	var projectID int64
	if p.Project != nil {
		projectID = p.Project.ID
		rt.Repo.ID = p.Project.ID
		rt.Repo.DefaultBranch = p.Project.DefaultBranch
		if p.Project.PathWithNamespace != "" {
			rt.Repo.FullName = p.Project.PathWithNamespace
		}
	}

	rt.MergeRequest = &core.MergeRequestRef{
		IID:       p.ObjectAttributes.IID,
		ProjectID: projectID,
		Title:     p.ObjectAttributes.Title,
		NotesURL:  fmt.Sprintf("%s/projects/%d/merge_requests/%d/notes", s.baseURL, projectID, p.ObjectAttributes.IID),
	}
	return rt, nil
}
