package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/sevigo/review-relay/internal/core"
	"github.com/sevigo/review-relay/internal/queue"
	"github.com/sevigo/review-relay/mocks"
)

// stubJob records the tasks it was handed and fails on request.
type stubJob struct {
	err   error
	calls []*core.QueuedTask
}

func (s *stubJob) Run(_ context.Context, task *core.QueuedTask) error {
	s.calls = append(s.calls, task)
	return s.err
}

func taskMessage(id, eventID string, attempt int) queue.Message {
	return queue.Message{
		ID:      id,
		Attempt: attempt,
		Task:    core.QueuedTask{Provider: core.ProviderGitHub, EventID: eventID},
	}
}

func TestConsumer_Process_AcksOnSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	c := NewConsumer(stream, &stubJob{}, testLogger())

	msg := taskMessage("1-0", "e1", 1)
	stream.EXPECT().Ack(gomock.Any(), msg).Return(nil)

	c.process(context.Background(), msg)
}

func TestConsumer_Process_RequeuesRetryableFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	c := NewConsumer(stream, &stubJob{err: errors.New("review backend returned status 500")}, testLogger())

	msg := taskMessage("1-0", "e1", 1)
	stream.EXPECT().MaxAttempts().Return(3)
	stream.EXPECT().Requeue(gomock.Any(), msg, "review backend returned status 500").Return(nil)

	c.process(context.Background(), msg)
}

func TestConsumer_Process_DeadLettersWhenBudgetExhausted(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	c := NewConsumer(stream, &stubJob{err: errors.New("still failing")}, testLogger())

	msg := taskMessage("1-0", "e1", 3)
	stream.EXPECT().MaxAttempts().Return(3)
	stream.EXPECT().SendDLQ(gomock.Any(), msg, "still failing").Return(nil)

	c.process(context.Background(), msg)
}

func TestConsumer_Run_ProcessesBatchInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	job := &stubJob{}
	c := NewConsumer(stream, job, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := []queue.Message{
		taskMessage("1-0", "e1", 1),
		taskMessage("1-1", "e2", 1),
	}

	stream.EXPECT().Reclaim(gomock.Any()).Return(nil, nil).AnyTimes()
	first := stream.EXPECT().Read(gomock.Any()).Return(msgs, nil)
	stream.EXPECT().Read(gomock.Any()).DoAndReturn(func(context.Context) ([]queue.Message, error) {
		cancel()
		return nil, context.Canceled
	}).After(first)
	stream.EXPECT().Ack(gomock.Any(), msgs[0]).Return(nil)
	stream.EXPECT().Ack(gomock.Any(), msgs[1]).Return(nil)

	err := c.Run(ctx)

	require.NoError(t, err)
	require.Len(t, job.calls, 2)
	assert.Equal(t, "e1", job.calls[0].EventID)
	assert.Equal(t, "e2", job.calls[1].EventID)
}

func TestConsumer_Run_ProcessesReclaimedMessages(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	job := &stubJob{}
	c := NewConsumer(stream, job, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stranded := taskMessage("1-0", "e-stale", 1)

	// The first sweep hands back an entry stranded by a crashed worker; it must
	// run through the same ack path as a fresh delivery.
	stream.EXPECT().Reclaim(gomock.Any()).Return([]queue.Message{stranded}, nil)
	stream.EXPECT().Ack(gomock.Any(), stranded).Return(nil)
	stream.EXPECT().Read(gomock.Any()).DoAndReturn(func(context.Context) ([]queue.Message, error) {
		cancel()
		return nil, context.Canceled
	})

	err := c.Run(ctx)

	require.NoError(t, err)
	require.Len(t, job.calls, 1)
	assert.Equal(t, "e-stale", job.calls[0].EventID)
}

func TestConsumer_Run_ReclaimFailureDoesNotStopLoop(t *testing.T) {
	ctrl := gomock.NewController(t)
	stream := mocks.NewMockTaskStream(ctrl)
	job := &stubJob{}
	c := NewConsumer(stream, job, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msg := taskMessage("1-0", "e1", 1)

	stream.EXPECT().Reclaim(gomock.Any()).Return(nil, errors.New("redis gone"))
	stream.EXPECT().Read(gomock.Any()).Return([]queue.Message{msg}, nil)
	stream.EXPECT().Ack(gomock.Any(), msg).Return(nil)
	stream.EXPECT().Read(gomock.Any()).DoAndReturn(func(context.Context) ([]queue.Message, error) {
		cancel()
		return nil, context.Canceled
	})

	err := c.Run(ctx)

	require.NoError(t, err)
	require.Len(t, job.calls, 1)
}
