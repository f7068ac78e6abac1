package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type JobType string

const (
	JobTypeOrderNotification           JobType = "order_notification"
	JobTypeDeliveryRequestNotification JobType = "delivery_request_notification"
)

const MaxRetries = 5

type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	RetryCount  int             `json:"retry_count"`
	LastError   string          `json:"last_error,omitempty"`
	NextRetryAt *time.Time      `json:"next_retry_at,omitempty"`
	LastAttempt bool            `json:"last_attempt,omitempty"`
	Exhausted   bool            `json:"exhausted,omitempty"`
	ManualRetry bool            `json:"manual_retry,omitempty"`
	// Delivered lists the steps of a multi-step job that already succeeded.
	// It is saved with the job on failure so a retry resumes after them.
	Delivered   []string        `json:"delivered,omitempty"`

	// raw is the exact list entry the job was read from, needed to remove it
	// from the processing list.
	raw string
}

// Decode unmarshals the job payload into v.
func (j *Job) Decode(v interface{}) error {
	return json.Unmarshal(j.Payload, v)
}

// IsDelivered reports whether step already succeeded on an earlier attempt.
func (j *Job) IsDelivered(step string) bool {
	for _, done := range j.Delivered {
		if done == step {
			return true
		}
	}
	return false
}

func (j *Job) MarkDelivered(step string) {
	if !j.IsDelivered(step) {
		j.Delivered = append(j.Delivered, step)
	}
}

// Queue is a Redis list based job queue with a processing list, a failed
// list and a sorted set of delayed jobs scored by their due time.
type Queue struct {
	client     *redis.Client
	logger     *zap.Logger
	queueName  string
	processing string
	failed     string
	delayed    string
}

func NewQueue(redisURL, queueName string, logger *zap.Logger) (*Queue, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewQueueWithClient(client, queueName, logger), nil
}

func NewQueueWithClient(client *redis.Client, queueName string, logger *zap.Logger) *Queue {
	return &Queue{
		client:     client,
		logger:     logger,
		queueName:  queueName,
		processing: queueName + ":processing",
		failed:     queueName + ":failed",
		delayed:    queueName + ":delayed",
	}
}

func newJob(jobType JobType, payload interface{}) ([]byte, *Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	job := &Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   data,
		CreatedAt: time.Now().UTC(),
	}
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal job: %w", err)
	}
	return jobJSON, job, nil
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload interface{}) (string, error) {
	jobJSON, job, err := newJob(jobType, payload)
	if err != nil {
		return "", err
	}

	if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
		return "", fmt.Errorf("failed to push job to queue: %w", err)
	}

	q.logger.Info("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return job.ID, nil
}

func (q *Queue) EnqueueDelayed(ctx context.Context, jobType JobType, payload interface{}, delay time.Duration) (string, error) {
	jobJSON, job, err := newJob(jobType, payload)
	if err != nil {
		return "", err
	}

	executeAt := time.Now().Add(delay)
	if err := q.client.ZAdd(ctx, q.delayed, &redis.Z{
		Score:  float64(executeAt.Unix()),
		Member: jobJSON,
	}).Err(); err != nil {
		return "", fmt.Errorf("failed to push delayed job to queue: %w", err)
	}

	q.logger.Info("enqueued delayed job",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Time("execute_at", executeAt))
	return job.ID, nil
}

// Dequeue blocks up to timeout for the next job and moves it to the
// processing list. It returns nil, nil when the wait times out.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get job from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, fmt.Errorf("unexpected BLPOP result format")
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	job.raw = result[1]

	if err := q.client.RPush(ctx, q.processing, result[1]).Err(); err != nil {
		q.logger.Warn("failed to move job to processing list", zap.String("job_id", job.ID), zap.Error(err))
	}

	return &job, nil
}

func (q *Queue) CompleteJob(ctx context.Context, job *Job) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		return fmt.Errorf("failed to remove job from processing queue: %w", err)
	}

	q.logger.Info("completed job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
	return nil
}

// FailJob schedules a retry with exponential backoff (15s, 30s, 60s, ...) or,
// once MaxRetries is exceeded, parks the job on the failed list.
func (q *Queue) FailJob(ctx context.Context, job *Job, jobErr error) error {
	if err := q.client.LRem(ctx, q.processing, 1, job.raw).Err(); err != nil {
		q.logger.Warn("failed to remove job from processing list", zap.String("job_id", job.ID), zap.Error(err))
	}

	job.RetryCount++
	job.LastError = jobErr.Error()

	if job.RetryCount <= MaxRetries {
		delay := RetryDelay(job.RetryCount)
		retryAt := time.Now().Add(delay)
		job.NextRetryAt = &retryAt
		job.LastAttempt = job.RetryCount == MaxRetries

		jobJSON, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}

		if err := q.client.ZAdd(ctx, q.delayed, &redis.Z{
			Score:  float64(retryAt.Unix()),
			Member: jobJSON,
		}).Err(); err != nil {
			q.logger.Warn("failed to schedule retry, moving job to failed list", zap.String("job_id", job.ID), zap.Error(err))
			if err := q.client.RPush(ctx, q.failed, jobJSON).Err(); err != nil {
				return fmt.Errorf("failed to push job to failed queue: %w", err)
			}
			return nil
		}

		q.logger.Info("job scheduled for retry",
			zap.String("job_id", job.ID),
			zap.String("type", string(job.Type)),
			zap.Int("retry", job.RetryCount),
			zap.Duration("delay", delay))
		return nil
	}

	job.Exhausted = true
	job.NextRetryAt = nil
	jobJSON, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.failed, jobJSON).Err(); err != nil {
		return fmt.Errorf("failed to push job to failed queue: %w", err)
	}

	q.logger.Error("job moved to failed list",
		zap.String("job_id", job.ID),
		zap.String("type", string(job.Type)),
		zap.Int("retries", job.RetryCount),
		zap.String("last_error", job.LastError))
	return nil
}

func RetryDelay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	return time.Duration(15*(1<<(retry-1))) * time.Second
}

// ProcessDelayedJobs moves every due delayed job to the main queue. A job is
// only pushed by the caller that removed it from the set.
func (q *Queue) ProcessDelayedJobs(ctx context.Context) (int, error) {
	jobs, err := q.client.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{
		Min: "0",
		Max: fmt.Sprintf("%d", time.Now().Unix()),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get delayed jobs: %w", err)
	}

	moved := 0
	for _, jobJSON := range jobs {
		removed, err := q.client.ZRem(ctx, q.delayed, jobJSON).Result()
		if err != nil {
			q.logger.Warn("failed to remove job from delayed set", zap.Error(err))
			continue
		}
		if removed == 0 {
			continue
		}
		if err := q.client.RPush(ctx, q.queueName, jobJSON).Err(); err != nil {
			q.logger.Error("failed to move delayed job to main queue", zap.Error(err))
			continue
		}
		moved++
	}

	if moved > 0 {
		q.logger.Debug("moved delayed jobs", zap.Int("count", moved))
	}
	return moved, nil
}

// RetryJob requeues a job from the failed list with its retry count reset.
func (q *Queue) RetryJob(ctx context.Context, jobID string) error {
	jobs, err := q.client.LRange(ctx, q.failed, 0, -1).Result()
	if err != nil {
		return fmt.Errorf("failed to list failed jobs: %w", err)
	}

	for _, jobJSON := range jobs {
		var job Job
		if err := json.Unmarshal([]byte(jobJSON), &job); err != nil {
			q.logger.Warn("skipping unreadable failed job", zap.Error(err))
			continue
		}
		if job.ID != jobID {
			continue
		}

		if err := q.client.LRem(ctx, q.failed, 1, jobJSON).Err(); err != nil {
			return fmt.Errorf("failed to remove job from failed queue: %w", err)
		}

		job.RetryCount = 0
		job.ManualRetry = true
		job.Exhausted = false
		job.LastAttempt = false
		job.NextRetryAt = nil

		updated, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to marshal job: %w", err)
		}
		if err := q.client.RPush(ctx, q.queueName, updated).Err(); err != nil {
			return fmt.Errorf("failed to push job to main queue: %w", err)
		}

		q.logger.Info("manually requeued job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		return nil
	}

	return fmt.Errorf("job %s not found in failed queue", jobID)
}

type Stats struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Delayed    int64 `json:"delayed"`
	Failed     int64 `json:"failed"`
}

func (q *Queue) Stats(ctx context.Context) (Stats, error) {
	pipe := q.client.Pipeline()
	pending := pipe.LLen(ctx, q.queueName)
	processing := pipe.LLen(ctx, q.processing)
	delayed := pipe.ZCard(ctx, q.delayed)
	failed := pipe.LLen(ctx, q.failed)
	if _, err := pipe.Exec(ctx); err != nil {
		return Stats{}, fmt.Errorf("failed to read queue stats: %w", err)
	}
	return Stats{
		Pending:    pending.Val(),
		Processing: processing.Val(),
		Delayed:    delayed.Val(),
		Failed:     failed.Val(),
	}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

func (q *Queue) Client() *redis.Client {
	return q.client
}

func (q *Queue) Close() error {
	return q.client.Close()
}
