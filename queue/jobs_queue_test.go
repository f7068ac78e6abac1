package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type notice struct {
	OrderID string `json:"order_id"`
}

func newTestQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewQueueWithClient(client, "jobs", zap.NewNop()), mr
}

func TestEnqueueDequeueComplete(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	id, err := q.Enqueue(ctx, JobTypeOrderNotification, notice{OrderID: "ORD-1"})
	require.NoError(t, err)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, JobTypeOrderNotification, job.Type)

	var got notice
	require.NoError(t, job.Decode(&got))
	assert.Equal(t, "ORD-1", got.OrderID)

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Processing)

	require.NoError(t, q.CompleteJob(ctx, job))
	stats, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Processing)
	assert.Zero(t, stats.Pending)
}

func TestFailJobSchedulesRetry(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, JobTypeOrderNotification, notice{OrderID: "ORD-2"})
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)

	require.NoError(t, q.FailJob(ctx, job, errors.New("smtp timeout")))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Delayed)
	assert.Zero(t, stats.Processing)
	assert.Zero(t, stats.Failed)
}

func TestFailJobExhausted(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, JobTypeDeliveryRequestNotification, notice{OrderID: "x"})
	require.NoError(t, err)
	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	job.RetryCount = MaxRetries

	require.NoError(t, q.FailJob(ctx, job, errors.New("bounced")))

	stats, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Failed)
	assert.Zero(t, stats.Delayed)

	require.NoError(t, q.RetryJob(ctx, job.ID))
	again, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	assert.Equal(t, job.ID, again.ID)
	assert.Zero(t, again.RetryCount)
	assert.True(t, again.ManualRetry)
}

func TestProcessDelayedJobs(t *testing.T) {
	q, _ := newTestQueue(t)
	ctx := context.Background()

	_, err := q.EnqueueDelayed(ctx, JobTypeOrderNotification, notice{OrderID: "due"}, -time.Minute)
	require.NoError(t, err)
	_, err = q.EnqueueDelayed(ctx, JobTypeOrderNotification, notice{OrderID: "later"}, time.Hour)
	require.NoError(t, err)

	moved, err := q.ProcessDelayedJobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	job, err := q.Dequeue(ctx, time.Second)
	require.NoError(t, err)
	var got notice
	require.NoError(t, job.Decode(&got))
	assert.Equal(t, "due", got.OrderID)
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 15*time.Second, RetryDelay(1))
	assert.Equal(t, 60*time.Second, RetryDelay(3))
	assert.Equal(t, 240*time.Second, RetryDelay(5))
}
