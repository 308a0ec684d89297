package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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
	githubSignatureHeader = "X-Hub-Signature-256"
	githubDeliveryHeader  = "X-GitHub-Delivery"
	sha256SignaturePrefix = "sha256="
)

// GitHubStrategy implements Strategy for GitHub webhooks.
type GitHubStrategy struct {
	secret string
	logger *slog.Logger
}

// NewGitHub builds the GitHub strategy from validated configuration.
func NewGitHub(cfg config.GitHubConfig, logger *slog.Logger) *GitHubStrategy {
	return &GitHubStrategy{secret: cfg.WebhookSecret, logger: logger}
}

func (s *GitHubStrategy) Provider() core.Provider {
	return core.ProviderGitHub
}

// VerifySignature checks the HMAC-SHA256 digest GitHub sends over the exact
// body bytes. Only the sha256 scheme is accepted; a well-formed signature for
// any other algorithm fails.
func (s *GitHubStrategy) VerifySignature(header http.Header, body []byte) bool {
	if s.secret == "" {
		s.logger.Error("github webhook secret not configured, rejecting delivery")
		return false
	}

	signature := header.Get(githubSignatureHeader)
	if !strings.HasPrefix(signature, sha256SignaturePrefix) {
		return false
	}

	expected, err := hex.DecodeString(strings.TrimPrefix(signature, sha256SignaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.secret))
	mac.Write(body)
	return hmac.Equal(expected, mac.Sum(nil))
}

// githubEventProbe mirrors just the payload fields identity derivation needs.
type githubEventProbe struct {
	Action      string `json:"action"`
	Ref         string `json:"ref"`
	After       string `json:"after"`
	PullRequest *struct {
		NodeID string `json:"node_id"`
		Head   struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Comment *struct {
		ID int64 `json:"id"`
	} `json:"comment"`
	Issue *struct {
		ID int64 `json:"id"`
	} `json:"issue"`
	Repository *struct {
		ID int64 `json:"id"`
	} `json:"repository"`
}

// DeriveEventID prefers payload-derived composites, which stay stable across
// redeliveries of the same logical event, over the per-delivery header id.
func (s *GitHubStrategy) DeriveEventID(header http.Header, body []byte) string {
	var p githubEventProbe
	if err := json.Unmarshal(body, &p); err != nil {
		return "gh:err:" + uuid.NewString()
	}

	if p.PullRequest != nil && p.PullRequest.NodeID != "" && p.Action != "" {
		sha := p.PullRequest.Head.SHA
		if sha == "" {
			sha = p.After
		}
		if sha == "" {
			sha = "unknown_sha"
		}
		return fmt.Sprintf("gh:pr:%s:%s:%s", p.PullRequest.NodeID, p.Action, sha)
	}

	if p.Ref != "" && p.After != "" && p.Repository != nil && p.Repository.ID != 0 {
		return fmt.Sprintf("gh:push:%d:%s:%s", p.Repository.ID, p.Ref, p.After)
	}

	if p.Comment != nil && p.Comment.ID != 0 && p.Issue != nil && p.Issue.ID != 0 {
		return fmt.Sprintf("gh:comment:%d:%d", p.Comment.ID, p.Issue.ID)
	}

	if delivery := header.Get(githubDeliveryHeader); delivery != "" {
		return delivery
	}

	return "gh:rand:" + uuid.NewString()
}

// githubPayload mirrors the fields task normalization needs.
type githubPayload struct {
	PullRequest *struct {
		Number            int    `json:"number"`
		Title             string `json:"title"`
		CommentsURL       string `json:"comments_url"`
		ReviewCommentsURL string `json:"review_comments_url"`
		Head              struct {
			SHA string `json:"sha"`
		} `json:"head"`
	} `json:"pull_request"`
	Repository *struct {
		ID            int64  `json:"id"`
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
	} `json:"repository"`
}

// NormalizeTask builds the provider-agnostic task for a pull request payload.
// Missing repository identity degrades to the unknown/repo sentinel; a payload
// without a pull_request block has no review target and is an error.
func (s *GitHubStrategy) NormalizeTask(task *core.QueuedTask) (*core.ReviewTask, error) {
	var p githubPayload
	if err := json.Unmarshal(task.Payload, &p); err != nil {
		return nil, fmt.Errorf("failed to parse github payload: %w", err)
	}

	if p.PullRequest == nil {
		return nil, fmt.Errorf("github payload carries no pull_request to review")
	}

	// ReviewType is carried through as queued, empty or not; the review job
	// resolves missing types against the repo policy.
	rt := &core.ReviewTask{
		Provider:      core.ProviderGitHub,
		EventID:       task.EventID,
		ReviewType:    task.ReviewType,
		Repo:          core.Repository{FullName: core.UnknownRepo},
		FilesToReview: task.FilesToReview,
	}

	if p.Repository != nil {
		rt.Repo.ID = p.Repository.ID
		rt.Repo.DefaultBranch = p.Repository.DefaultBranch
		if p.Repository.FullName != "" {
			rt.Repo.FullName = p.Repository.FullName
		}
	}

	// The review-comments endpoint is the one that accepts commit/path/line
	// anchored bodies; plain comments_url is the fallback.
	commentsURL := p.PullRequest.ReviewCommentsURL
	if commentsURL == "" {
		commentsURL = p.PullRequest.CommentsURL
	}

	rt.PullRequest = &core.PullRequestRef{
		Number:      p.PullRequest.Number,
		Title:       p.PullRequest.Title,
		CommentsURL: commentsURL,
		HeadSHA:     p.PullRequest.Head.SHA,
	}
	return rt, nil
}
