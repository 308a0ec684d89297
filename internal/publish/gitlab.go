package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

// GitLabPoster posts review comments onto merge requests via the GitLab API.
type GitLabPoster struct {
	client *gitlab.Client
	logger *slog.Logger
}

// NewGitLabPoster wraps an already configured client-go client.
func NewGitLabPoster(client *gitlab.Client, logger *slog.Logger) *GitLabPoster {
	return &GitLabPoster{client: client, logger: logger}
}

func NewGitLabPosterFromConfig(cfg config.GitLabConfig, logger *slog.Logger) (*GitLabPoster, error) {
	if cfg.Token == "" {
		return nil, errors.New("gitlab poster requires an api token")
	}
	client, err := gitlab.NewClient(cfg.Token, gitlab.WithBaseURL(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create gitlab client: %w", err)
	}
	return NewGitLabPoster(client, logger), nil
}

// PostComment posts one comment. Comments anchored to a file and line are
// tried as positioned diff discussions first; the webhook payload carries no
// diff SHAs, so a rejected position falls back to a plain note with the
// location prefixed into the body. Everything else goes straight to a note.
func (g *GitLabPoster) PostComment(ctx context.Context, task *core.ReviewTask, comment core.ReviewComment) error {
	if task.MergeRequest == nil {
		return errors.New("task carries no merge request reference")
	}
	pid := int(task.MergeRequest.ProjectID)
	iid := task.MergeRequest.IID

	line := comment.LineNumber
	if line == 0 {
		line = comment.Position
	}

	body := comment.Comment
	if comment.FilePath != "" && line > 0 {
		opts := &gitlab.CreateMergeRequestDiscussionOptions{
			Body: gitlab.Ptr(comment.Comment),
			Position: &gitlab.PositionOptions{
				PositionType: gitlab.Ptr("text"),
				NewPath:      gitlab.Ptr(comment.FilePath),
				NewLine:      gitlab.Ptr(int64(line)),
			},
		}
		_, _, err := g.client.Discussions.CreateMergeRequestDiscussion(pid, int64(iid), opts, gitlab.WithContext(ctx))
		if err == nil {
			return nil
		}
		g.logger.WarnContext(ctx, "positioned discussion rejected, falling back to a plain note",
			"project_id", pid,
			"mr_iid", iid,
			"path", comment.FilePath,
			"line", line,
			"error", err)
		body = fmt.Sprintf("**%s:%d**\n\n%s", comment.FilePath, line, comment.Comment)
	}

	_, _, err := g.client.Notes.CreateMergeRequestNote(pid, int64(iid), &gitlab.CreateMergeRequestNoteOptions{
		Body: gitlab.Ptr(body),
	}, gitlab.WithContext(ctx))
	return err
}
