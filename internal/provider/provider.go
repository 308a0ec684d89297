// Package provider implements the per-provider webhook strategies. Each
// strategy bundles signature verification, event identity derivation and
// payload normalization for one source control platform, so the rest of the
// pipeline never branches on provider strings.
package provider

import (
	"fmt"
	"net/http"

	"github.com/sevigo/review-relay/internal/core"
)

// Strategy is the capability set a provider must implement. A strategy is
// selected once at the HTTP boundary and travels with the event from there on.
type Strategy interface {
	// Provider returns the platform this strategy handles.
	Provider() core.Provider

	// VerifySignature reports whether the delivery authentically originates
	// from the platform, using the exact raw body bytes. It never panics; any
	// malformed input fails verification.
	VerifySignature(header http.Header, body []byte) bool

	// DeriveEventID returns the idempotency key for a delivery. Derivation is
	// total: when no stable identity can be extracted it degrades to a random
	// fallback id whose prefix marks it as non-deterministic.
	DeriveEventID(header http.Header, body []byte) string

	// NormalizeTask maps a queued payload onto the provider-agnostic review
	// task. It tolerates missing nested fields; only a payload without a
	// reviewable target is an error.
	NormalizeTask(task *core.QueuedTask) (*core.ReviewTask, error)
}

// Registry holds the closed set of configured strategies.
type Registry struct {
	strategies map[core.Provider]Strategy
}

// NewRegistry builds a registry from the given strategies.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[core.Provider]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Provider()] = s
	}
	return r
}

// ForProvider returns the strategy registered for p.
func (r *Registry) ForProvider(p core.Provider) (Strategy, error) {
	s, ok := r.strategies[p]
	if !ok {
		return nil, fmt.Errorf("no strategy registered for provider %q", p)
	}
	return s, nil
}
