package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/queue"
	"freshcart-api/services/email"
)

type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	CompleteJob(ctx context.Context, job *queue.Job) error
	FailJob(ctx context.Context, job *queue.Job, jobErr error) error
	ProcessDelayedJobs(ctx context.Context) (int, error)
}

// Worker consumes notification jobs and delivers them by email.
type Worker struct {
	queue         JobQueue
	mailer        email.EmailSender
	operatorEmail string
	logger        *zap.Logger

	pollTimeout  time.Duration
	delayedEvery time.Duration

	shutdown chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

func NewWorker(q JobQueue, mailer email.EmailSender, operatorEmail string, logger *zap.Logger) *Worker {
	return &Worker{
		queue:         q,
		mailer:        mailer,
		operatorEmail: operatorEmail,
		logger:        logger,
		pollTimeout:   5 * time.Second,
		delayedEvery:  10 * time.Second,
		shutdown:      make(chan struct{}),
	}
}

// Start launches concurrency consumers plus one goroutine that promotes due
// delayed jobs.
func (w *Worker) Start(concurrency int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true

	for i := 0; i < concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(i)
	}
	w.wg.Add(1)
	go w.pumpDelayed()

	w.logger.Info("started notification workers", zap.Int("concurrency", concurrency))
}

// Stop signals all goroutines and waits for in-flight jobs to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.shutdown)
	w.mu.Unlock()

	w.logger.Info("stopping notification workers")
	w.wg.Wait()
}

func (w *Worker) processJobs(workerID int) {
	defer w.wg.Done()
	log := w.logger.With(zap.Int("worker", workerID))

	for {
		select {
		case <-w.shutdown:
			log.Debug("worker shutting down")
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.pollTimeout+5*time.Second)
		job, err := w.queue.Dequeue(ctx, w.pollTimeout)
		cancel()

		if err != nil {
			log.Error("error dequeuing job", zap.Error(err))
			w.sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		log.Info("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))

		if jobErr := w.ProcessJob(job); jobErr != nil {
			log.Warn("job failed", zap.String("job_id", job.ID), zap.Error(jobErr))

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if err := w.queue.FailJob(ctx, job, jobErr); err != nil {
				log.Error("error marking job as failed", zap.String("job_id", job.ID), zap.Error(err))
			}
			cancel()
			continue
		}

		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		if err := w.queue.CompleteJob(ctx, job); err != nil {
			log.Error("error marking job as complete", zap.String("job_id", job.ID), zap.Error(err))
		}
		cancel()
	}
}

func (w *Worker) pumpDelayed() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.delayedEvery)
	defer ticker.Stop()

	for {
		select {
		case <-w.shutdown:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			if _, err := w.queue.ProcessDelayedJobs(ctx); err != nil {
				w.logger.Error("error processing delayed jobs", zap.Error(err))
			}
			cancel()
		}
	}
}

func (w *Worker) sleep(d time.Duration) {
	select {
	case <-w.shutdown:
	case <-time.After(d):
	}
}

func (w *Worker) ProcessJob(job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeOrderNotification:
		return w.processOrderNotification(job)
	case queue.JobTypeDeliveryRequestNotification:
		return w.processDeliveryRequestNotification(job)
	default:
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// processOrderNotification mails the customer when an address email was
// given and always copies the store operator. Each recipient is marked on
// the job once mailed, so a retry after a partial failure only sends the
// copies that are still missing.
func (w *Worker) processOrderNotification(job *queue.Job) error {
	var order models.Order
	if err := job.Decode(&order); err != nil {
		return fmt.Errorf("invalid order payload: %w", err)
	}

	recipients := []struct{ step, to, what string }{
		{"customer", order.Address.Email, "order confirmation"},
		{"operator", w.operatorEmail, "operator copy"},
	}
	for _, r := range recipients {
		if r.to == "" || job.IsDelivered(r.step) {
			continue
		}
		if err := w.mailer.SendOrderConfirmation(r.to, &order); err != nil {
			return fmt.Errorf("failed to send %s: %w", r.what, err)
		}
		job.MarkDelivered(r.step)
	}
	return nil
}

func (w *Worker) processDeliveryRequestNotification(job *queue.Job) error {
	var req models.DeliveryRequest
	if err := job.Decode(&req); err != nil {
		return fmt.Errorf("invalid delivery request payload: %w", err)
	}
	if w.operatorEmail == "" {
		w.logger.Warn("no operator email configured, dropping delivery request alert", zap.String("request_id", req.ID))
		return nil
	}
	return w.mailer.SendDeliveryRequestAlert(w.operatorEmail, &req)
}
