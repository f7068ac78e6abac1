package coupon

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type UsageStore interface {
	// IncrementCouponUsage bumps the usage count once per order ID and
	// reports whether this call did the increment.
	IncrementCouponUsage(ctx context.Context, couponID, orderID string) (bool, error)
}

type Recorder struct {
	store  UsageStore
	logger *zap.Logger
}

func NewRecorder(store UsageStore, logger *zap.Logger) *Recorder {
	return &Recorder{store: store, logger: logger}
}

// RecordUsage must only be called after the order write succeeded.
func (r *Recorder) RecordUsage(ctx context.Context, couponID, orderID string) error {
	applied, err := r.store.IncrementCouponUsage(ctx, couponID, orderID)
	if err != nil {
		return fmt.Errorf("error recording coupon usage: %w", err)
	}
	if !applied {
		r.logger.Info("coupon usage already recorded for order",
			zap.String("coupon_id", couponID),
			zap.String("order_id", orderID))
	}
	return nil
}
