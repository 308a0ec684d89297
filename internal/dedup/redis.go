// Package dedup implements the event dedup store on Redis keys with expiry.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-relay/internal/core"
)

// Window is how long a seen event id blocks re-enqueueing. Absence of a key
// past the window does not prove the event was never seen; that weak-dedup
// tradeoff is accepted.
const Window = time.Hour

type redisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisStore returns a core.DedupStore backed by Redis SETNX with TTL.
func NewRedisStore(client *redis.Client, logger *slog.Logger) core.DedupStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisStore{client: client, logger: logger}
}

// MarkSeen records the event id and reports whether it was the first sighting.
// SETNX makes the check and the record a single round trip, so two concurrent
// deliveries of the same event cannot both win.
func (s *redisStore) MarkSeen(ctx context.Context, p core.Provider, eventID string) (bool, error) {
	firstSeen := time.Now().UTC().Format(time.RFC3339)

	first, err := s.client.SetNX(ctx, Key(p, eventID), firstSeen, Window).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}

	if !first {
		s.logger.DebugContext(ctx, "duplicate event suppressed",
			"provider", p,
			"event_id", eventID)
	}
	return first, nil
}

// Release drops the record after a failed enqueue so the sender can retry.
func (s *redisStore) Release(ctx context.Context, p core.Provider, eventID string) error {
	if err := s.client.Del(ctx, Key(p, eventID)).Err(); err != nil {
		return fmt.Errorf("dedup release: %w", err)
	}
	return nil
}

// Key builds the dedup key for an event.
func Key(p core.Provider, eventID string) string {
	return fmt.Sprintf("dedup:%s:%s", p, eventID)
}
