package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/review-relay/internal/core"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name     string
		provider core.Provider
		eventID  string
		want     string
	}{
		{"GitHub", core.ProviderGitHub, "gh:pr:X:opened:S", "dedup:github:gh:pr:X:opened:S"},
		{"GitLab", core.ProviderGitLab, "uuid-123", "dedup:gitlab:uuid-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.provider, tt.eventID))
		})
	}
}
