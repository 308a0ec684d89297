package core

import "context"

//go:generate mockgen -destination=../../mocks/mock_ports.go -package=mocks . DedupStore,TaskProducer,Invoker,Publisher,OutcomeStore

// DedupStore records event identities so each delivery is enqueued at most once.
type DedupStore interface {
	// MarkSeen records the event id and reports whether this call was the first
	// sighting within the dedup window. A single call both checks and records.
	MarkSeen(ctx context.Context, p Provider, eventID string) (bool, error)

	// Release drops the record so a delivery whose enqueue failed can be
	// retried by the sender. Best effort; releasing an absent key is not an error.
	Release(ctx context.Context, p Provider, eventID string) error
}

// TaskProducer places accepted tasks on the durable queue.
type TaskProducer interface {
	Enqueue(ctx context.Context, task *QueuedTask) error
}

// Invoker asks the review backend for feedback on a normalized task. It never
// returns a Go error; every failure mode is folded into the result's status tag.
type Invoker interface {
	Invoke(ctx context.Context, task *ReviewTask) ReviewResult
}

// Publisher posts review comments back onto the originating PR or MR. The
// returned error covers setup failures that prevented publishing from starting;
// per-comment failures are absorbed and logged.
type Publisher interface {
	Publish(ctx context.Context, task *ReviewTask, comments []ReviewComment) error
}

// OutcomeStore persists processing outcomes for inspection and audit.
type OutcomeStore interface {
	// SaveOutcome inserts or overwrites the outcome stored under its TaskKey.
	SaveOutcome(ctx context.Context, outcome *ReviewOutcome) error

	// GetOutcome fetches one outcome by task key.
	GetOutcome(ctx context.Context, taskKey string) (*ReviewOutcome, error)

	// ListOutcomes returns the most recent outcomes, newest first.
	ListOutcomes(ctx context.Context, limit int) ([]*ReviewOutcome, error)
}
