package coupon

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"freshcart-api/models"
)

// Applier runs at most one validation per session key. Starting a new one
// cancels the previous one, whose caller then receives ErrSuperseded.
type Applier struct {
	validator *Validator

	mu       sync.Mutex
	inflight map[string]*attempt
	seq      uint64
}

type attempt struct {
	id     uint64
	cancel context.CancelFunc
}

func NewApplier(validator *Validator) *Applier {
	return &Applier{
		validator: validator,
		inflight:  make(map[string]*attempt),
	}
}

func (a *Applier) Apply(ctx context.Context, key, code string, subtotal decimal.Decimal) (models.AppliedCoupon, error) {
	ctx, id := a.begin(ctx, key)
	defer a.finish(key, id)

	applied, err := a.validator.Validate(ctx, code, subtotal)
	if a.superseded(key, id) {
		return models.AppliedCoupon{}, ErrSuperseded
	}
	return applied, err
}

// Cancel aborts the in-flight validation for key, if any.
func (a *Applier) Cancel(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cur, ok := a.inflight[key]; ok {
		cur.cancel()
		delete(a.inflight, key)
	}
}

func (a *Applier) begin(ctx context.Context, key string) (context.Context, uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.inflight[key]; ok {
		prev.cancel()
	}
	a.seq++
	ctx, cancel := context.WithCancel(ctx)
	a.inflight[key] = &attempt{id: a.seq, cancel: cancel}
	return ctx, a.seq
}

func (a *Applier) superseded(key string, id uint64) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cur, ok := a.inflight[key]
	return !ok || cur.id != id
}

func (a *Applier) finish(key string, id uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cur, ok := a.inflight[key]; ok && cur.id == id {
		cur.cancel()
		delete(a.inflight, key)
	}
}
