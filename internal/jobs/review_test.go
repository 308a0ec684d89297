package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/provider"
	"github.com/sevigo/review-relay/mocks"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRegistry() *provider.Registry {
	logger := testLogger()
	return provider.NewRegistry(
		provider.NewGitHub(config.GitHubConfig{WebhookSecret: "secret"}, logger),
		provider.NewGitLab(config.GitLabConfig{WebhookSecret: "token", BaseURL: "https://gitlab.example.com/api/v4"}, logger),
	)
}

func newTestJob(t *testing.T, policies *config.Policy) (*ReviewJob, *mocks.MockInvoker, *mocks.MockPublisher, *mocks.MockOutcomeStore) {
	t.Helper()

	ctrl := gomock.NewController(t)
	invoker := mocks.NewMockInvoker(ctrl)
	publisher := mocks.NewMockPublisher(ctrl)
	outcomes := mocks.NewMockOutcomeStore(ctrl)
	job := NewReviewJob(testRegistry(), invoker, publisher, outcomes, policies, testLogger())
	return job, invoker, publisher, outcomes
}

func queuedGitHubTask(t *testing.T) *core.QueuedTask {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"action": "opened",
		"repository": map[string]any{
			"id":             int64(1),
			"full_name":      "sevigo/review-relay",
			"default_branch": "main",
		},
		"pull_request": map[string]any{
			"node_id":      "PR_node1",
			"number":       7,
			"title":        "Add retry budget to the consumer",
			"head":         map[string]any{"sha": "abc123"},
			"comments_url": "https://api.github.com/repos/sevigo/review-relay/issues/7/comments",
		},
	})
	require.NoError(t, err)

	return &core.QueuedTask{
		Provider:      core.ProviderGitHub,
		EventID:       "gh:pr:PR_node1:opened:abc123",
		Payload:       payload,
		FilesToReview: []core.ReviewFile{{Path: "main.go", Diff: "@@ -1 +1 @@"}},
	}
}

// captureOutcome wires SaveOutcome to record the persisted outcome.
func captureOutcome(outcomes *mocks.MockOutcomeStore, dst **core.ReviewOutcome) *gomock.Call {
	return outcomes.EXPECT().SaveOutcome(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, o *core.ReviewOutcome) error {
			*dst = o
			return nil
		})
}

func TestReviewJob_Run_CompletedWithComments(t *testing.T) {
	job, invoker, publisher, outcomes := newTestJob(t, nil)

	comments := []core.ReviewComment{{FilePath: "main.go", LineNumber: 3, Comment: "nit"}}
	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.OKResult("Looks solid overall.", comments, json.RawMessage(`{}`)))
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), comments).Return(nil)

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, core.OutcomeCompleted, saved.Status)
	assert.Equal(t, "github:sevigo/review-relay:7:gh:pr:PR_node1:opened:abc123", saved.TaskKey)
	assert.Equal(t, "sevigo/review-relay", saved.RepoFullName)
	assert.Equal(t, 7, saved.Number)
	assert.Equal(t, "Looks solid overall.", saved.Summary)
	assert.Empty(t, saved.Error)
}

func TestReviewJob_Run_PublishFailureKeepsCompleted(t *testing.T) {
	job, invoker, publisher, outcomes := newTestJob(t, nil)

	comments := []core.ReviewComment{{Comment: "general note"}}
	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.OKResult("summary", comments, nil))
	publisher.EXPECT().Publish(gomock.Any(), gomock.Any(), comments).
		Return(errors.New(`no comment poster registered for provider "github"`))

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, core.OutcomeCompleted, saved.Status)
	assert.Contains(t, saved.Error, "no comment poster registered")
}

func TestReviewJob_Run_RetryablePersistsOutcomeFirst(t *testing.T) {
	job, invoker, _, outcomes := newTestJob(t, nil)

	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.RetryableResult(errors.New("review backend returned status 500"), nil))

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	require.NotNil(t, saved, "outcome must be persisted before the retry signal")
	assert.Equal(t, core.OutcomeErrorCallingLLM, saved.Status)
	assert.Contains(t, saved.Error, "status 500")
}

func TestReviewJob_Run_TerminalIsAcked(t *testing.T) {
	job, invoker, _, outcomes := newTestJob(t, nil)

	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.TerminalResult(core.OutcomeFailed, errors.New("review content lacks the success flag"), nil))

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, core.OutcomeFailed, saved.Status)
}

func TestReviewJob_Run_CompletedWithoutCommentsSkipsPublish(t *testing.T) {
	job, invoker, _, outcomes := newTestJob(t, nil)

	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.OKResult("nothing to flag", nil, nil))

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	assert.Equal(t, core.OutcomeCompleted, saved.Status)
}

func TestReviewJob_Run_NormalizationFailure(t *testing.T) {
	job, _, _, outcomes := newTestJob(t, nil)

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	queued := &core.QueuedTask{
		Provider: core.ProviderGitHub,
		EventID:  "gh:push:1:refs/heads/main:abc123",
		Payload:  json.RawMessage(`{"ref": "refs/heads/main", "repository": {"full_name": "sevigo/review-relay"}}`),
	}
	err := job.Run(context.Background(), queued)

	require.NoError(t, err, "malformed payloads are acked, not retried")
	require.NotNil(t, saved)
	assert.Equal(t, core.OutcomeFailed, saved.Status)
	assert.Equal(t, "sevigo/review-relay", saved.RepoFullName)
	assert.Equal(t, 0, saved.Number)
	assert.Equal(t, "github:sevigo/review-relay:0:gh:push:1:refs/heads/main:abc123", saved.TaskKey)
	assert.NotEmpty(t, saved.Error)
}

func TestReviewJob_Run_UnknownProvider(t *testing.T) {
	job, _, _, outcomes := newTestJob(t, nil)

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	queued := &core.QueuedTask{
		Provider: core.Provider("bitbucket"),
		EventID:  "bb:1",
		Payload:  json.RawMessage(`{}`),
	}
	err := job.Run(context.Background(), queued)

	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, core.OutcomeFailed, saved.Status)
	assert.Equal(t, core.UnknownRepo, saved.RepoFullName)
}

func TestReviewJob_Run_StoreFailureIsSwallowed(t *testing.T) {
	job, invoker, _, outcomes := newTestJob(t, nil)

	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).
		Return(core.OKResult("summary", nil, nil))
	outcomes.EXPECT().SaveOutcome(gomock.Any(), gomock.Any()).Return(errors.New("db down"))

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err, "persistence failures never change the delivery decision")
}

func TestReviewJob_Run_PolicyReviewTypeOverride(t *testing.T) {
	policies := &config.Policy{
		Default: *core.DefaultRepoPolicy(),
		Repos: map[string]core.RepoPolicy{
			"sevigo/review-relay": {ReviewType: core.ReviewGeneral},
		},
	}
	job, invoker, _, outcomes := newTestJob(t, policies)

	var invoked *core.ReviewTask
	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *core.ReviewTask) core.ReviewResult {
			invoked = task
			return core.OKResult("summary", nil, nil)
		})

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	// The queued task carries no explicit type, so the repo override decides.
	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	require.NotNil(t, invoked)
	assert.Equal(t, core.ReviewGeneral, invoked.ReviewType)
	assert.Equal(t, core.ReviewGeneral, saved.ReviewType)
}

func TestReviewJob_Run_ExplicitReviewTypeBeatsPolicy(t *testing.T) {
	policies := &config.Policy{
		Default: *core.DefaultRepoPolicy(),
		Repos: map[string]core.RepoPolicy{
			"sevigo/review-relay": {ReviewType: core.ReviewGeneral},
		},
	}
	job, invoker, _, outcomes := newTestJob(t, policies)

	var invoked *core.ReviewTask
	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *core.ReviewTask) core.ReviewResult {
			invoked = task
			return core.OKResult("summary", nil, nil)
		})

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	queued := queuedGitHubTask(t)
	queued.ReviewType = core.ReviewDetailed
	err := job.Run(context.Background(), queued)

	require.NoError(t, err)
	require.NotNil(t, invoked)
	assert.Equal(t, core.ReviewDetailed, invoked.ReviewType)
}

func TestReviewJob_Run_DefaultsReviewTypeWithoutPolicy(t *testing.T) {
	job, invoker, _, outcomes := newTestJob(t, nil)

	var invoked *core.ReviewTask
	invoker.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *core.ReviewTask) core.ReviewResult {
			invoked = task
			return core.OKResult("summary", nil, nil)
		})

	var saved *core.ReviewOutcome
	captureOutcome(outcomes, &saved)

	err := job.Run(context.Background(), queuedGitHubTask(t))

	require.NoError(t, err)
	require.NotNil(t, invoked)
	assert.Equal(t, core.ReviewDetailed, invoked.ReviewType)
}

func TestReviewJob_ApplyPolicy(t *testing.T) {
	policies := &config.Policy{
		Default: *core.DefaultRepoPolicy(),
		Repos: map[string]core.RepoPolicy{
			"sevigo/review-relay": {
				ReviewType:         core.ReviewGeneral,
				CustomInstructions: []string{"Focus on concurrency."},
				ExcludeExts:        []string{"md", ".lock"},
				MaxFiles:           2,
			},
		},
	}
	job, _, _, _ := newTestJob(t, policies)

	task := &core.ReviewTask{
		Provider: core.ProviderGitHub,
		Repo:     core.Repository{FullName: "sevigo/review-relay"},
		FilesToReview: []core.ReviewFile{
			{Path: "a.go"},
			{Path: "README.md"},
			{Path: "b.go"},
			{Path: "go.lock"},
			{Path: "c.go"},
		},
	}
	job.applyPolicy(task)

	assert.Equal(t, core.ReviewGeneral, task.ReviewType)
	assert.Equal(t, []string{"Focus on concurrency."}, task.Instructions)
	require.Len(t, task.FilesToReview, 2)
	assert.Equal(t, "a.go", task.FilesToReview[0].Path)
	assert.Equal(t, "b.go", task.FilesToReview[1].Path)
}

func TestExcludedExt(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		excluded []string
		want     bool
	}{
		{name: "dotted match", path: "README.md", excluded: []string{".md"}, want: true},
		{name: "dotless match", path: "README.md", excluded: []string{"md"}, want: true},
		{name: "case insensitive", path: "NOTES.MD", excluded: []string{".md"}, want: true},
		{name: "no match", path: "main.go", excluded: []string{".md"}, want: false},
		{name: "no extension", path: "Makefile", excluded: []string{".md"}, want: false},
		{name: "empty list", path: "main.go", excluded: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := excludedExt(tt.path, tt.excluded); got != tt.want {
				t.Errorf("excludedExt(%q, %v) = %v, want %v", tt.path, tt.excluded, got, tt.want)
			}
		})
	}
}
