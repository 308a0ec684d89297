package provider

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

func newTestGitLab(secret string) *GitLabStrategy {
	return NewGitLab(config.GitLabConfig{
		WebhookSecret: secret,
		BaseURL:       "https://gitlab.example.com/api/v4/",
	}, testLogger())
}

func TestGitLabStrategy_VerifySignature(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		token  string
		want   bool
	}{
		{"Matching token", "s3cret", "s3cret", true},
		{"Wrong token", "s3cret", "guess", false},
		{"Missing header", "s3cret", "", false},
		{"Unconfigured secret always fails", "", "s3cret", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestGitLab(tt.secret)

			header := http.Header{}
			if tt.token != "" {
				header.Set("X-Gitlab-Token", tt.token)
			}

			assert.Equal(t, tt.want, s.VerifySignature(header, []byte(`{}`)))
		})
	}
}

func TestGitLabStrategy_DeriveEventID(t *testing.T) {
	s := newTestGitLab("s3cret")

	mrBody := `{
		"object_kind": "merge_request",
		"project": {"id": 42},
		"object_attributes": {"iid": 7, "last_commit": {"id": "sha9"}}
	}`

	tests := []struct {
		name   string
		body   string
		header http.Header
		want   string
	}{
		{
			name:   "Event UUID header beats payload derivation",
			body:   mrBody,
			header: http.Header{"X-Gitlab-Event-Uuid": []string{"uuid-123"}},
			want:   "uuid-123",
		},
		{
			name: "Merge request composite",
			body: mrBody,
			want: "gl:mr:42:7:sha9",
		},
		{
			name: "Merge request composite without last commit",
			body: `{"object_kind":"merge_request","project":{"id":42},"object_attributes":{"iid":7}}`,
			want: "gl:mr:42:7:unknown_sha",
		},
		{
			name: "Push composite with top-level project id",
			body: `{"object_kind":"push","project_id":42,"ref":"refs/heads/main","after":"abc123"}`,
			want: "gl:push:42:refs/heads/main:abc123",
		},
		{
			name: "Note composite",
			body: `{"object_kind":"note","project":{"id":42},"object_attributes":{"id":99}}`,
			want: "gl:note:42:99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := tt.header
			if header == nil {
				header = http.Header{}
			}

			got := s.DeriveEventID(header, []byte(tt.body))
			assert.Equal(t, tt.want, got)

			again := s.DeriveEventID(header, []byte(tt.body))
			assert.Equal(t, got, again)
		})
	}

	t.Run("Random fallback is marked non-deterministic", func(t *testing.T) {
		got := s.DeriveEventID(http.Header{}, []byte(`{"object_kind":"pipeline"}`))
		assert.True(t, strings.HasPrefix(got, "gl:rand:"), "got %q", got)
	})
}

func TestGitLabStrategy_NormalizeTask(t *testing.T) {
	s := newTestGitLab("s3cret")

	t.Run("Merge request payload", func(t *testing.T) {
		payload := `{
			"object_kind": "merge_request",
			"project": {"id": 42, "path_with_namespace": "acme/widgets", "default_branch": "main"},
			"object_attributes": {"iid": 7, "title": "Tighten timeouts"}
		}`
		task := &core.QueuedTask{
			Provider:   core.ProviderGitLab,
			EventID:    "gl:mr:42:7:sha9",
			ReviewType: core.ReviewGeneral,
			Payload:    json.RawMessage(payload),
		}

		rt, err := s.NormalizeTask(task)
		require.NoError(t, err)

		assert.Equal(t, core.ProviderGitLab, rt.Provider)
		assert.Equal(t, core.ReviewGeneral, rt.ReviewType)
		assert.Equal(t, "acme/widgets", rt.Repo.FullName)
		assert.Nil(t, rt.PullRequest)
		require.NotNil(t, rt.MergeRequest)
		assert.Equal(t, 7, rt.MergeRequest.IID)
		assert.Equal(t, int64(42), rt.MergeRequest.ProjectID)
		assert.Equal(t,
			"https://gitlab.example.com/api/v4/projects/42/merge_requests/7/notes",
			rt.MergeRequest.NotesURL)
	})

	t.Run("Missing project degrades to sentinel", func(t *testing.T) {
		task := &core.QueuedTask{
			Provider: core.ProviderGitLab,
			Payload:  json.RawMessage(`{"object_kind":"merge_request","object_attributes":{"iid":3}}`),
		}

		rt, err := s.NormalizeTask(task)
		require.NoError(t, err)
		assert.Equal(t, core.UnknownRepo, rt.Repo.FullName)
	})

	t.Run("No merge request block", func(t *testing.T) {
		task := &core.QueuedTask{
			Provider: core.ProviderGitLab,
			Payload:  json.RawMessage(`{"object_kind":"push","project_id":42}`),
		}

		_, err := s.NormalizeTask(task)
		assert.Error(t, err)
	})
}

func TestRegistry_ForProvider(t *testing.T) {
	gh := NewGitHub(config.GitHubConfig{WebhookSecret: "a"}, testLogger())
	gl := newTestGitLab("b")
	registry := NewRegistry(gh, gl)

	got, err := registry.ForProvider(core.ProviderGitHub)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderGitHub, got.Provider())

	got, err = registry.ForProvider(core.ProviderGitLab)
	require.NoError(t, err)
	assert.Equal(t, core.ProviderGitLab, got.Provider())

	_, err = registry.ForProvider(core.Provider("bitbucket"))
	assert.Error(t, err)
}
