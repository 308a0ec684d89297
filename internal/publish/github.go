package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

// GitHubPoster posts review comments onto pull requests via the GitHub API.
type GitHubPoster struct {
	client *github.Client
	logger *slog.Logger
}

// NewGitHubPoster wraps an already authenticated go-github client.
func NewGitHubPoster(client *github.Client, logger *slog.Logger) *GitHubPoster {
	return &GitHubPoster{client: client, logger: logger}
}

// NewGitHubPosterFromConfig builds the API client from configuration. A
// personal access token takes precedence; otherwise the poster authenticates
// as a GitHub App installation, with token refresh handled by the transport.
func NewGitHubPosterFromConfig(ctx context.Context, cfg config.GitHubConfig, logger *slog.Logger) (*GitHubPoster, error) {
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		return NewGitHubPoster(github.NewClient(oauth2.NewClient(ctx, ts)), logger), nil
	}

	if cfg.AppID != 0 && cfg.InstallationID != 0 && cfg.PrivateKeyPath != "" {
		itr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, cfg.AppID, cfg.InstallationID, cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub App transport: %w", err)
		}
		logger.Info("using GitHub App installation auth", "app_id", cfg.AppID, "installation_id", cfg.InstallationID)
		return NewGitHubPoster(github.NewClient(&http.Client{Transport: itr}), logger), nil
	}

	return nil, errors.New("github poster requires a token or complete app credentials")
}

// PostComment posts one comment. Comments anchored to a file and line become
// pull request review comments pinned to the head commit; everything else
// lands on the conversation thread as a regular issue comment.
func (g *GitHubPoster) PostComment(ctx context.Context, task *core.ReviewTask, comment core.ReviewComment) error {
	if task.PullRequest == nil {
		return errors.New("task carries no pull request reference")
	}
	owner, repo, err := splitFullName(task.Repo.FullName)
	if err != nil {
		return err
	}
	number := task.PullRequest.Number

	if comment.FilePath == "" || (comment.LineNumber == 0 && comment.Position == 0) {
		_, _, err = g.client.Issues.CreateComment(ctx, owner, repo, number, &github.IssueComment{
			Body: github.Ptr(comment.Comment),
		})
		return err
	}

	prComment := &github.PullRequestComment{
		Body:     github.Ptr(comment.Comment),
		CommitID: github.Ptr(task.PullRequest.HeadSHA),
		Path:     github.Ptr(comment.FilePath),
	}
	if comment.LineNumber > 0 {
		prComment.Line = github.Ptr(comment.LineNumber)
	} else {
		prComment.Position = github.Ptr(comment.Position)
	}

	_, _, err = g.client.PullRequests.CreateComment(ctx, owner, repo, number, prComment)
	return err
}

func splitFullName(fullName string) (string, string, error) {
	owner, repo, ok := strings.Cut(fullName, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("malformed repository full name %q", fullName)
	}
	return owner, repo, nil
}
