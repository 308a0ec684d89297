// Package jobs defines the background processing of queued review tasks.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/metrics"
	"github.com/sevigo/review-relay/internal/provider"
)

// ReviewJob processes one queued task end to end: normalize, invoke the
// review backend, publish accepted comments, persist the outcome.
type ReviewJob struct {
	registry  *provider.Registry
	invoker   core.Invoker
	publisher core.Publisher
	outcomes  core.OutcomeStore
	policies  *config.Policy
	logger    *slog.Logger
}

// NewReviewJob creates a new ReviewJob. The policy may be nil; every other
// dependency is required.
func NewReviewJob(registry *provider.Registry, invoker core.Invoker, publisher core.Publisher, outcomes core.OutcomeStore, policies *config.Policy, logger *slog.Logger) *ReviewJob {
	if registry == nil {
		panic("provider registry cannot be nil")
	}
	if invoker == nil {
		panic("invoker cannot be nil")
	}
	if publisher == nil {
		panic("publisher cannot be nil")
	}
	if outcomes == nil {
		panic("outcome store cannot be nil")
	}
	return &ReviewJob{
		registry:  registry,
		invoker:   invoker,
		publisher: publisher,
		outcomes:  outcomes,
		policies:  policies,
		logger:    logger,
	}
}

// Run drives the per-message state machine. The returned error is the retry
// signal: non-nil means the message should be redelivered. Every other failure
// has already been folded into the persisted outcome, and the outcome is
// persisted before any retry signal is raised.
func (j *ReviewJob) Run(ctx context.Context, queued *core.QueuedTask) (retErr error) {
	started := time.Now()
	phase := "normalize"

	defer func() {
		if r := recover(); r != nil {
			j.logger.ErrorContext(ctx, "review job panicked",
				"provider", queued.Provider,
				"event_id", queued.EventID,
				"phase", phase,
				"panic", r)
			outcome := j.minimalOutcome(queued, fmt.Errorf("panic during %s: %v", phase, r))
			if phase == "publish" {
				outcome.Status = core.OutcomeErrorPostingComment
			}
			j.saveOutcome(ctx, outcome)
			j.observe(queued.Provider, outcome.Status, started)
			retErr = nil // a panic will not self-correct on redelivery
		}
	}()

	task, err := j.normalize(queued)
	if err != nil {
		j.logger.ErrorContext(ctx, "task normalization failed",
			"provider", queued.Provider,
			"event_id", queued.EventID,
			"error", err)
		outcome := j.minimalOutcome(queued, err)
		j.saveOutcome(ctx, outcome)
		j.observe(queued.Provider, outcome.Status, started)
		return nil
	}

	j.applyPolicy(task)

	j.logger.InfoContext(ctx, "starting review",
		"provider", task.Provider,
		"repo", task.Repo.FullName,
		"target", task.TargetNumber(),
		"files", len(task.FilesToReview))

	phase = "invoke"
	result := j.invoker.Invoke(ctx, task)
	outcome := buildOutcome(task, result)

	if result.Status == core.StatusOK && len(result.Comments) > 0 {
		phase = "publish"
		if err := j.publisher.Publish(ctx, task, result.Comments); err != nil {
			// Publishing problems never demote a completed review.
			outcome.Error = err.Error()
			j.logger.ErrorContext(ctx, "publishing review comments failed",
				"repo", task.Repo.FullName,
				"target", task.TargetNumber(),
				"error", err)
		}
	}

	phase = "store"
	j.saveOutcome(ctx, outcome)
	j.observe(task.Provider, outcome.Status, started)

	if result.Status == core.StatusRetryable {
		return result.Err
	}
	return nil
}

func (j *ReviewJob) normalize(queued *core.QueuedTask) (*core.ReviewTask, error) {
	strategy, err := j.registry.ForProvider(queued.Provider)
	if err != nil {
		return nil, err
	}
	return strategy.NormalizeTask(queued)
}

// applyPolicy folds the repository's review policy into the task. An explicit
// type on the queued task wins over the policy; a task that arrived without
// one takes the policy's, falling back to the detailed review.
func (j *ReviewJob) applyPolicy(task *core.ReviewTask) {
	if j.policies != nil {
		policy := j.policies.ForRepo(task.Repo.FullName)

		if task.ReviewType == "" {
			task.ReviewType = policy.ReviewType
		}
		task.Instructions = append(task.Instructions, policy.CustomInstructions...)

		if len(policy.ExcludeExts) > 0 {
			kept := task.FilesToReview[:0]
			for _, f := range task.FilesToReview {
				if !excludedExt(f.Path, policy.ExcludeExts) {
					kept = append(kept, f)
				}
			}
			task.FilesToReview = kept
		}
		if policy.MaxFiles > 0 && len(task.FilesToReview) > policy.MaxFiles {
			task.FilesToReview = task.FilesToReview[:policy.MaxFiles]
		}
	}

	if task.ReviewType == "" {
		task.ReviewType = core.ReviewDetailed
	}
}

func excludedExt(path string, excluded []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range excluded {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == e {
			return true
		}
	}
	return false
}

// buildOutcome folds an invocation result into the persisted record.
func buildOutcome(task *core.ReviewTask, result core.ReviewResult) *core.ReviewOutcome {
	outcome := &core.ReviewOutcome{
		TaskKey:      task.Key(),
		Provider:     task.Provider,
		Status:       core.OutcomeCompleted,
		RepoFullName: task.Repo.FullName,
		Number:       task.TargetNumber(),
		ReviewType:   task.ReviewType,
		Summary:      result.Summary,
		Comments:     result.Comments,
		Raw:          result.Raw,
		CreatedAt:    time.Now(),
	}
	if result.Status != core.StatusOK {
		outcome.Status = result.Failure
		if result.Err != nil {
			outcome.Error = result.Err.Error()
		}
	}
	return outcome
}

// minimalOutcome builds a failure record when no normalized task exists,
// extracting what it can from the raw payload.
func (j *ReviewJob) minimalOutcome(queued *core.QueuedTask, cause error) *core.ReviewOutcome {
	repo := core.UnknownRepo
	number := 0

	var probe struct {
		Repository struct {
			FullName string `json:"full_name"`
		} `json:"repository"`
		Project struct {
			PathWithNamespace string `json:"path_with_namespace"`
		} `json:"project"`
		PullRequest struct {
			Number int `json:"number"`
		} `json:"pull_request"`
		ObjectAttributes struct {
			IID int `json:"iid"`
		} `json:"object_attributes"`
	}
	if err := json.Unmarshal(queued.Payload, &probe); err == nil {
		switch {
		case probe.Repository.FullName != "":
			repo = probe.Repository.FullName
		case probe.Project.PathWithNamespace != "":
			repo = probe.Project.PathWithNamespace
		}
		if probe.PullRequest.Number > 0 {
			number = probe.PullRequest.Number
		} else if probe.ObjectAttributes.IID > 0 {
			number = probe.ObjectAttributes.IID
		}
	}

	return &core.ReviewOutcome{
		TaskKey:      core.BuildTaskKey(queued.Provider, repo, number, queued.EventID),
		Provider:     queued.Provider,
		Status:       core.OutcomeFailed,
		RepoFullName: repo,
		Number:       number,
		ReviewType:   queued.ReviewType,
		Error:        cause.Error(),
		CreatedAt:    time.Now(),
	}
}

// saveOutcome is best effort: a store failure is logged and never changes the
// delivery decision.
func (j *ReviewJob) saveOutcome(ctx context.Context, outcome *core.ReviewOutcome) {
	if err := j.outcomes.SaveOutcome(ctx, outcome); err != nil {
		j.logger.ErrorContext(ctx, "failed to persist review outcome",
			"task_key", outcome.TaskKey,
			"status", outcome.Status,
			"error", err)
	}
}

func (j *ReviewJob) observe(p core.Provider, status core.OutcomeStatus, started time.Time) {
	metrics.TasksProcessed.WithLabelValues(string(p), string(status)).Inc()
	metrics.ReviewDuration.WithLabelValues(string(p), string(status)).Observe(time.Since(started).Seconds())
}
