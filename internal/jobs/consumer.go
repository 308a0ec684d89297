package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/metrics"
	"github.com/sevigo/review-relay/internal/queue"
)

// readRetryDelay throttles the loop after a stream read error.
const readRetryDelay = time.Second

// reclaimInterval spaces out sweeps of the group's pending entries.
const reclaimInterval = 30 * time.Second

// Job is the per-message processing contract. A non-nil error from Run is the
// retry signal; everything else means the message is finished.
type Job interface {
	Run(ctx context.Context, task *core.QueuedTask) error
}

// TaskStream is the queue surface the consumer loop drives.
//
//go:generate mockgen -destination=../../mocks/mock_task_stream.go -package=mocks . TaskStream
type TaskStream interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Reclaim(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
	Requeue(ctx context.Context, msg queue.Message, errMsg string) error
	SendDLQ(ctx context.Context, msg queue.Message, errMsg string) error
	MaxAttempts() int
}

// Consumer pulls batches off the task stream and hands each message to the
// review job, one at a time and in delivery order.
type Consumer struct {
	stream TaskStream
	job    Job
	logger *slog.Logger
}

func NewConsumer(stream TaskStream, job Job, logger *slog.Logger) *Consumer {
	return &Consumer{stream: stream, job: job, logger: logger}
}

// Run loops until the context is canceled. Alongside fresh deliveries it
// periodically sweeps the group's pending entries, so work stranded by a
// worker that crashed between read and ack is picked back up.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("starting review consumer")

	var lastReclaim time.Time
	for {
		if ctx.Err() != nil {
			c.logger.Info("review consumer stopped")
			return nil
		}

		if time.Since(lastReclaim) >= reclaimInterval {
			lastReclaim = time.Now()
			reclaimed, err := c.stream.Reclaim(ctx)
			if err != nil {
				c.logger.Error("failed to reclaim pending messages", "error", err)
			}
			for _, msg := range reclaimed {
				c.process(ctx, msg)
			}
		}

		batch, err := c.stream.Read(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			c.logger.Error("failed to read from task stream", "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(readRetryDelay):
			}
			continue
		}

		for _, msg := range batch {
			c.process(ctx, msg)
		}
	}
}

// process decides ack, requeue or dead letter for one delivery. The job has
// already persisted the outcome by the time it signals a retry.
func (c *Consumer) process(ctx context.Context, msg queue.Message) {
	err := c.job.Run(ctx, &msg.Task)
	if err == nil {
		if ackErr := c.stream.Ack(ctx, msg); ackErr != nil {
			c.logger.Error("failed to ack message", "message_id", msg.ID, "error", ackErr)
		}
		return
	}

	if msg.Attempt >= c.stream.MaxAttempts() {
		c.logger.Error("retry budget exhausted, dead-lettering message",
			"message_id", msg.ID,
			"event_id", msg.Task.EventID,
			"attempt", msg.Attempt,
			"error", err)
		metrics.TasksProcessed.WithLabelValues(string(msg.Task.Provider), "dead_lettered").Inc()
		if dlqErr := c.stream.SendDLQ(ctx, msg, err.Error()); dlqErr != nil {
			c.logger.Error("failed to dead-letter message", "message_id", msg.ID, "error", dlqErr)
		}
		return
	}

	c.logger.Warn("retryable failure, requeueing message",
		"message_id", msg.ID,
		"event_id", msg.Task.EventID,
		"attempt", msg.Attempt,
		"error", err)
	metrics.TasksProcessed.WithLabelValues(string(msg.Task.Provider), "retried").Inc()
	if reqErr := c.stream.Requeue(ctx, msg, err.Error()); reqErr != nil {
		c.logger.Error("failed to requeue message", "message_id", msg.ID, "error", reqErr)
	}
}
