// Package queue implements the durable task queue on Redis Streams: a producer
// the webhook handler enqueues into, and a consumer-group reader the review
// worker drains with ack, requeue and dead-letter support.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-relay/internal/core"
)

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewRedisProducer returns a core.TaskProducer writing to the given stream.
func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) core.TaskProducer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Enqueue(ctx context.Context, task *core.QueuedTask) error {
	encoded, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encoding task: %w", err)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"task":    encoded,
			"attempt": 1,
		},
	}).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}

	p.logger.InfoContext(ctx, "enqueued review task",
		"provider", task.Provider,
		"event_id", task.EventID,
		"stream", p.stream)
	return nil
}
