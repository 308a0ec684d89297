package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sevigo/review-relay/internal/config"
	"github.com/sevigo/review-relay/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func signSHA256(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestGitHubStrategy_VerifySignature(t *testing.T) {
	body := []byte(`{"action":"opened","pull_request":{"node_id":"PR_1"}}`)
	mutated := []byte(`{"action":"opened","pull_request":{"node_id":"PR_2"}}`)

	tests := []struct {
		name      string
		secret    string
		signature string
		body      []byte
		want      bool
	}{
		{
			name:      "Correct secret over exact bytes",
			secret:    "s3cret",
			signature: signSHA256("s3cret", body),
			body:      body,
			want:      true,
		},
		{
			name:      "Signed with a different secret",
			secret:    "s3cret",
			signature: signSHA256("other", body),
			body:      body,
			want:      false,
		},
		{
			name:      "Body mutated after signing",
			secret:    "s3cret",
			signature: signSHA256("s3cret", body),
			body:      mutated,
			want:      false,
		},
		{
			name:      "Well-formed sha1 signature is rejected",
			secret:    "s3cret",
			signature: "sha1=" + hex.EncodeToString([]byte("0123456789012345678")),
			body:      body,
			want:      false,
		},
		{
			name:      "Missing signature header",
			secret:    "s3cret",
			signature: "",
			body:      body,
			want:      false,
		},
		{
			name:      "Garbage after the scheme prefix",
			secret:    "s3cret",
			signature: "sha256=not-hex",
			body:      body,
			want:      false,
		},
		{
			name:      "Unconfigured secret always fails",
			secret:    "",
			signature: signSHA256("", body),
			body:      body,
			want:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewGitHub(config.GitHubConfig{WebhookSecret: tt.secret}, testLogger())

			header := http.Header{}
			if tt.signature != "" {
				header.Set("X-Hub-Signature-256", tt.signature)
			}

			assert.Equal(t, tt.want, s.VerifySignature(header, tt.body))
		})
	}
}

func TestGitHubStrategy_DeriveEventID(t *testing.T) {
	s := NewGitHub(config.GitHubConfig{WebhookSecret: "s3cret"}, testLogger())

	tests := []struct {
		name   string
		body   string
		header http.Header
		want   string
	}{
		{
			name: "Pull request composite",
			body: `{"action":"opened","pull_request":{"node_id":"PR_kwDOA","head":{"sha":"abc123"}}}`,
			want: "gh:pr:PR_kwDOA:opened:abc123",
		},
		{
			name: "Pull request falls back to after field",
			body: `{"action":"synchronize","after":"def456","pull_request":{"node_id":"PR_kwDOA"}}`,
			want: "gh:pr:PR_kwDOA:synchronize:def456",
		},
		{
			name: "Pull request with no sha at all",
			body: `{"action":"reopened","pull_request":{"node_id":"PR_kwDOA"}}`,
			want: "gh:pr:PR_kwDOA:reopened:unknown_sha",
		},
		{
			name: "Push composite",
			body: `{"ref":"refs/heads/main","after":"abc123","repository":{"id":42}}`,
			want: "gh:push:42:refs/heads/main:abc123",
		},
		{
			name: "Issue comment composite",
			body: `{"comment":{"id":7},"issue":{"id":9}}`,
			want: "gh:comment:7:9",
		},
		{
			name:   "Delivery header fallback",
			body:   `{"zen":"Keep it logically awesome."}`,
			header: http.Header{"X-Github-Delivery": []string{"72d3162e-cc78-11e3"}},
			want:   "72d3162e-cc78-11e3",
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
			assert.Equal(t, got, again, "derivation must be reproducible for identical input")
		})
	}

	t.Run("Random fallback is marked non-deterministic", func(t *testing.T) {
		got := s.DeriveEventID(http.Header{}, []byte(`{"zen":"Design for failure."}`))
		assert.True(t, strings.HasPrefix(got, "gh:rand:"), "got %q", got)
	})

	t.Run("Probe failure degrades to error-marked id", func(t *testing.T) {
		got := s.DeriveEventID(http.Header{}, []byte(`{"repository":"not-an-object"}`))
		assert.True(t, strings.HasPrefix(got, "gh:err:"), "got %q", got)
	})
}

func TestGitHubStrategy_NormalizeTask(t *testing.T) {
	s := NewGitHub(config.GitHubConfig{WebhookSecret: "s3cret"}, testLogger())

	t.Run("Full payload", func(t *testing.T) {
		payload := `{
			"pull_request": {
				"number": 17,
				"title": "Add retry budget",
				"comments_url": "https://api.github.com/repos/acme/widgets/issues/17/comments",
				"review_comments_url": "https://api.github.com/repos/acme/widgets/pulls/17/comments",
				"head": {"sha": "abc123"}
			},
			"repository": {"id": 42, "full_name": "acme/widgets", "default_branch": "main"}
		}`
		task := &core.QueuedTask{
			Provider:      core.ProviderGitHub,
			EventID:       "gh:pr:PR_1:opened:abc123",
			Payload:       json.RawMessage(payload),
			FilesToReview: []core.ReviewFile{{Path: "main.go", Diff: "+x"}},
		}

		rt, err := s.NormalizeTask(task)
		require.NoError(t, err)

		assert.Equal(t, core.ProviderGitHub, rt.Provider)
		assert.Empty(t, rt.ReviewType, "an unset type is resolved against the repo policy later")
		assert.Equal(t, "acme/widgets", rt.Repo.FullName)
		assert.Equal(t, int64(42), rt.Repo.ID)
		require.NotNil(t, rt.PullRequest)
		assert.Nil(t, rt.MergeRequest)
		assert.Equal(t, 17, rt.PullRequest.Number)
		assert.Equal(t, "abc123", rt.PullRequest.HeadSHA)
		assert.Equal(t, "https://api.github.com/repos/acme/widgets/pulls/17/comments", rt.PullRequest.CommentsURL)
		assert.Len(t, rt.FilesToReview, 1)
	})

	t.Run("Missing repository degrades to sentinel", func(t *testing.T) {
		task := &core.QueuedTask{
			Provider: core.ProviderGitHub,
			EventID:  "gh:pr:PR_1:opened:abc123",
			Payload:  json.RawMessage(`{"pull_request":{"number":3}}`),
		}

		rt, err := s.NormalizeTask(task)
		require.NoError(t, err)
		assert.Equal(t, core.UnknownRepo, rt.Repo.FullName)
		assert.Equal(t, 3, rt.TargetNumber())
	})

	t.Run("No pull request block", func(t *testing.T) {
		task := &core.QueuedTask{
			Provider: core.ProviderGitHub,
			Payload:  json.RawMessage(`{"ref":"refs/heads/main"}`),
		}

		_, err := s.NormalizeTask(task)
		assert.Error(t, err)
	})

	t.Run("Unparsable payload", func(t *testing.T) {
		task := &core.QueuedTask{Provider: core.ProviderGitHub, Payload: json.RawMessage(`{`)}

		_, err := s.NormalizeTask(task)
		assert.Error(t, err)
	})
}
