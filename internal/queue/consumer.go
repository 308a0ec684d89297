package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sevigo/review-relay/internal/core"
)

// ConsumerConfig holds the stream-reading settings for one consumer instance.
type ConsumerConfig struct {
	Stream      string        // Redis stream name
	Group       string        // Redis consumer group name
	Consumer    string        // Redis consumer name within the group
	DLQStream   string        // dead letter stream for messages out of attempts
	BatchSize   int64         // number of messages to read per batch
	Block       time.Duration // how long to block waiting for new messages
	MaxAttempts int           // delivery attempts before a message goes to the DLQ
	MinIdle     time.Duration // pending-entry idle time before reclaim takes it over
}

// Message is one delivery read from the task stream.
type Message struct {
	ID      string
	Attempt int
	Task    core.QueuedTask
	Raw     redis.XMessage
}

// RedisConsumer reads the task stream through a consumer group.
type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
	logger *slog.Logger

	// claimCursor walks the group's pending entries across Reclaim calls.
	claimCursor string
}

// NewRedisConsumer creates the consumer and its group. Creating the group at
// "0" rather than "$" means a recreated group still sees every message already
// in the stream, so restarts lose nothing.
func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig, logger *slog.Logger) (*RedisConsumer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Consumer == "" {
		// The name must be stable across restarts so a restarted worker sees
		// its own pending entries again. Instances sharing a host need an
		// explicit CONSUMER_NAME.
		host, err := os.Hostname()
		if err != nil {
			host = "relay"
		}
		cfg.Consumer = host
	}
	if cfg.MinIdle <= 0 {
		cfg.MinIdle = time.Minute
	}
	c := &RedisConsumer{client: client, cfg: cfg, logger: logger, claimCursor: "0-0"}

	if err := c.client.XGroupCreateMkStream(context.Background(), cfg.Stream, cfg.Group, "0").Err(); err != nil &&
		err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return nil, fmt.Errorf("creating consumer group: %w", err)
	}
	return c, nil
}

// Read fetches the next batch of undelivered messages. An empty batch after the
// block timeout is not an error. Messages that cannot be decoded are acked and
// skipped so one poison entry cannot wedge the stream.
func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		// ">" asks for messages never delivered to any consumer in the group.
		Streams: []string{c.cfg.Stream, ">"},
		Count:   c.cfg.BatchSize,
		Block:   c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, raw := range stream.Messages {
			msg, parseErr := ParseMessage(raw)
			if parseErr != nil {
				c.logger.ErrorContext(ctx, "failed to parse stream message",
					"error", parseErr,
					"raw_message_id", raw.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: raw.ID, Raw: raw})
				continue
			}
			messages = append(messages, msg)
		}
	}

	if len(messages) > 0 {
		c.logger.DebugContext(ctx, "read messages from stream",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}
	return messages, nil
}

// Reclaim takes over pending entries whose consumer died between read and ack,
// so accepted work survives worker crashes and consumer-name changes. Entries
// idle for at least MinIdle are claimed for this consumer and handed back for
// reprocessing; successive calls walk the whole pending list. Undecodable
// entries are acked and skipped, same as in Read.
func (c *RedisConsumer) Reclaim(ctx context.Context) ([]Message, error) {
	claimed, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.MinIdle,
		Start:    c.claimCursor,
		Count:    c.cfg.BatchSize,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("xautoclaim (stream=%s): %w", c.cfg.Stream, err)
	}
	c.claimCursor = next
	if c.claimCursor == "" {
		c.claimCursor = "0-0"
	}

	var messages []Message
	for _, raw := range claimed {
		msg, parseErr := ParseMessage(raw)
		if parseErr != nil {
			c.logger.ErrorContext(ctx, "failed to parse reclaimed message",
				"error", parseErr,
				"raw_message_id", raw.ID,
				"stream", c.cfg.Stream)
			_ = c.Ack(ctx, Message{ID: raw.ID, Raw: raw})
			continue
		}
		messages = append(messages, msg)
	}

	if len(messages) > 0 {
		c.logger.InfoContext(ctx, "reclaimed stale pending messages",
			"count", len(messages),
			"stream", c.cfg.Stream,
			"consumer", c.cfg.Consumer)
	}
	return messages, nil
}

// Ack marks a delivery as processed.
func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("xack (stream=%s): %w", c.cfg.Stream, err)
	}
	return nil
}

// Requeue acks the delivery and appends a fresh copy with the attempt counter
// bumped, so the retry is a new stream entry rather than a pending one.
func (c *RedisConsumer) Requeue(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking message for requeue: %w", err)
	}

	values := messageValues(msg, msg.Attempt+1)
	if errMsg != "" {
		values["last_error"] = errMsg
	}

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.Stream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd requeue: %w", err)
	}

	c.logger.InfoContext(ctx, "message requeued for retry",
		"event_id", msg.Task.EventID,
		"next_attempt", msg.Attempt+1,
		"reason", errMsg)
	return nil
}

// SendDLQ acks the delivery and copies it to the dead letter stream with the
// final error attached.
func (c *RedisConsumer) SendDLQ(ctx context.Context, msg Message, errMsg string) error {
	if err := c.Ack(ctx, msg); err != nil {
		return fmt.Errorf("acking message for dlq: %w", err)
	}

	values := messageValues(msg, msg.Attempt)
	values["error"] = errMsg

	if err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream: c.cfg.DLQStream,
		Values: values,
	}).Err(); err != nil {
		return fmt.Errorf("xadd dlq (stream=%s): %w", c.cfg.DLQStream, err)
	}

	c.logger.ErrorContext(ctx, "message sent to DLQ",
		"event_id", msg.Task.EventID,
		"final_error", errMsg,
		"dlq_stream", c.cfg.DLQStream)
	return nil
}

// MaxAttempts exposes the configured retry budget to the processing loop.
func (c *RedisConsumer) MaxAttempts() int {
	return c.cfg.MaxAttempts
}

// ParseMessage decodes one stream entry into a Message.
func ParseMessage(raw redis.XMessage) (Message, error) {
	taskField, ok := raw.Values["task"]
	if !ok {
		return Message{}, fmt.Errorf("missing task field")
	}

	var task core.QueuedTask
	if err := json.Unmarshal([]byte(fmt.Sprint(taskField)), &task); err != nil {
		return Message{}, fmt.Errorf("decoding task: %w", err)
	}

	attempt := 1
	if rawAttempt, ok := raw.Values["attempt"]; ok {
		parsed, err := strconv.Atoi(fmt.Sprint(rawAttempt))
		if err != nil {
			return Message{}, fmt.Errorf("parsing attempt: %w", err)
		}
		if parsed > 0 {
			attempt = parsed
		}
	}

	return Message{
		ID:      raw.ID,
		Attempt: attempt,
		Task:    task,
		Raw:     raw,
	}, nil
}

func messageValues(msg Message, attempt int) map[string]any {
	values := map[string]any{
		"attempt": attempt,
	}
	if taskField, ok := msg.Raw.Values["task"]; ok {
		values["task"] = taskField
	} else if encoded, err := json.Marshal(msg.Task); err == nil {
		values["task"] = encoded
	}
	return values
}
