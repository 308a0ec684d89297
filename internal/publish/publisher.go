// Package publish posts finished review comments back onto the originating
// pull or merge request.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/metrics"
)

// postDelay spaces out consecutive comment posts to stay under provider rate limits.
const postDelay = 200 * time.Millisecond

// Poster shapes and posts a single review comment for one provider.
//
//go:generate mockgen -destination=../../mocks/mock_poster.go -package=mocks . Poster
type Poster interface {
	PostComment(ctx context.Context, task *core.ReviewTask, comment core.ReviewComment) error
}

// Publisher routes review comments to the poster registered for the task's
// provider. It implements core.Publisher.
type Publisher struct {
	posters map[core.Provider]Poster
	delay   time.Duration
	logger  *slog.Logger
}

func NewPublisher(logger *slog.Logger, posters map[core.Provider]Poster) *Publisher {
	return &Publisher{
		posters: posters,
		delay:   postDelay,
		logger:  logger,
	}
}

// Publish posts comments one at a time, in order, pausing after each post.
// A failed post is logged and counted but never stops the remaining comments.
// The returned error covers setup problems raised before any comment is
// attempted, plus context cancellation mid-run.
func (p *Publisher) Publish(ctx context.Context, task *core.ReviewTask, comments []core.ReviewComment) error {
	poster, ok := p.posters[task.Provider]
	if !ok {
		return fmt.Errorf("no comment poster registered for provider %q", task.Provider)
	}

	comments = anchorComments(comments, validLinesByFile(task.FilesToReview, p.logger), p.logger)

	for i, comment := range comments {
		if err := poster.PostComment(ctx, task, comment); err != nil {
			metrics.CommentPostFailures.WithLabelValues(string(task.Provider)).Inc()
			p.logger.ErrorContext(ctx, "failed to post review comment",
				"provider", task.Provider,
				"repo", task.Repo.FullName,
				"target", task.TargetNumber(),
				"comment_index", i,
				"error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(p.delay):
		}
	}

	return nil
}
