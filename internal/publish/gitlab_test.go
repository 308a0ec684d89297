package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gitlab "gitlab.com/gitlab-org/api/client-go"

	"github.com/sevigo/review-relay/internal/core"
)

func testGitLabPoster(t *testing.T, handler http.Handler) *GitLabPoster {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := gitlab.NewClient("test-token", gitlab.WithBaseURL(srv.URL))
	require.NoError(t, err)

	return NewGitLabPoster(client, discardLogger())
}

func gitlabTask() *core.ReviewTask {
	return &core.ReviewTask{
		Provider: core.ProviderGitLab,
		EventID:  "gl:mr:42:7:def456",
		Repo:     core.Repository{ID: 42, FullName: "group/project"},
		MergeRequest: &core.MergeRequestRef{
			IID:       7,
			ProjectID: 42,
		},
	}
}

func TestGitLabPoster_PostComment_Note(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	poster := testGitLabPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))

	err := poster.PostComment(context.Background(), gitlabTask(), core.ReviewComment{
		Comment: "Overall this change looks good.",
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/v4/projects/42/merge_requests/7/notes", gotPath)
	assert.Equal(t, "Overall this change looks good.", gotBody["body"])
}

func TestGitLabPoster_PostComment_PositionedDiscussion(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
	)
	poster := testGitLabPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": "d1"}`))
	}))

	err := poster.PostComment(context.Background(), gitlabTask(), core.ReviewComment{
		FilePath:   "app/models/user.rb",
		LineNumber: 3,
		Comment:    "Validate the email format here.",
	})

	require.NoError(t, err)
	assert.Equal(t, "/api/v4/projects/42/merge_requests/7/discussions", gotPath)

	position, ok := gotBody["position"].(map[string]any)
	require.True(t, ok, "expected a position block, got %v", gotBody)
	assert.Equal(t, "text", position["position_type"])
	assert.Equal(t, "app/models/user.rb", position["new_path"])
	assert.Equal(t, float64(3), position["new_line"])
}

func TestGitLabPoster_PostComment_PositionFallback(t *testing.T) {
	var notesBody map[string]any
	poster := testGitLabPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/projects/42/merge_requests/7/discussions":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message": "400 Bad request - base_sha is required"}`))
		case "/api/v4/projects/42/merge_requests/7/notes":
			require.NoError(t, json.NewDecoder(r.Body).Decode(&notesBody))
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id": 2}`))
		default:
			t.Errorf("unexpected request path %s", r.URL.Path)
		}
	}))

	err := poster.PostComment(context.Background(), gitlabTask(), core.ReviewComment{
		FilePath:   "app/models/user.rb",
		LineNumber: 3,
		Comment:    "Validate the email format here.",
	})

	require.NoError(t, err)
	require.NotNil(t, notesBody)
	assert.Contains(t, notesBody["body"], "**app/models/user.rb:3**")
	assert.Contains(t, notesBody["body"], "Validate the email format here.")
}

func TestGitLabPoster_PostComment_MissingMergeRequest(t *testing.T) {
	poster := testGitLabPoster(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	task := gitlabTask()
	task.MergeRequest = nil

	err := poster.PostComment(context.Background(), task, core.ReviewComment{Comment: "x"})
	require.Error(t, err)
}
