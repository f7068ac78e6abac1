package notification

import (
	"context"
	"fmt"

	"freshcart-api/models"
	"freshcart-api/queue"
)

type Enqueuer interface {
	Enqueue(ctx context.Context, jobType queue.JobType, payload interface{}) (string, error)
}

// Notifier turns domain events into background email jobs. Sending happens
// in the worker; callers only see enqueue failures.
type Notifier struct {
	queue Enqueuer
}

func NewNotifier(q Enqueuer) *Notifier {
	return &Notifier{queue: q}
}

func (n *Notifier) SendOrderNotification(ctx context.Context, order *models.Order) error {
	if _, err := n.queue.Enqueue(ctx, queue.JobTypeOrderNotification, order); err != nil {
		return fmt.Errorf("failed to queue order notification: %w", err)
	}
	return nil
}

func (n *Notifier) NotifyDeliveryRequest(ctx context.Context, req *models.DeliveryRequest) error {
	if _, err := n.queue.Enqueue(ctx, queue.JobTypeDeliveryRequestNotification, req); err != nil {
		return fmt.Errorf("failed to queue delivery request notification: %w", err)
	}
	return nil
}
