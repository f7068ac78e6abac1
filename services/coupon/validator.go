package coupon

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"freshcart-api/models"
)

type CouponStore interface {
	GetActiveCouponByCode(ctx context.Context, code string) (*models.Coupon, error)
}

type Validator struct {
	store  CouponStore
	logger *zap.Logger
	now    func() time.Time
}

func NewValidator(store CouponStore, logger *zap.Logger) *Validator {
	return &Validator{store: store, logger: logger, now: time.Now}
}

// WithClock replaces the time source, mainly for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// Validate looks up the coupon by its upper-cased code and evaluates it against
// the subtotal. Rule failures come back as validation or not-found AppErrors;
// store failures as external ones. Usage counts are never modified here.
func (v *Validator) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (models.AppliedCoupon, error) {
	code = NormalizeCode(code)
	if code == "" {
		return models.AppliedCoupon{}, models.NewValidationError(ErrEmptyCode.Error(), ErrEmptyCode)
	}

	c, err := v.store.GetActiveCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return models.AppliedCoupon{}, models.NewNotFoundError(ErrNotFoundOrInactive.Error(), ErrNotFoundOrInactive)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return models.AppliedCoupon{}, ctxErr
		}
		v.logger.Error("coupon lookup failed", zap.String("code", code), zap.Error(err))
		return models.AppliedCoupon{}, models.NewExternalError(err)
	}

	applied, err := Evaluate(*c, subtotal, v.now())
	if err != nil {
		return models.AppliedCoupon{}, classify(err)
	}
	return applied, nil
}

// Revalidate re-runs the rules against a stored snapshot without a lookup.
func (v *Validator) Revalidate(snapshot models.Coupon, subtotal decimal.Decimal) (models.AppliedCoupon, error) {
	applied, err := Evaluate(snapshot, subtotal, v.now())
	if err != nil {
		return models.AppliedCoupon{}, classify(err)
	}
	return applied, nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func classify(err error) error {
	if errors.Is(err, ErrNotFoundOrInactive) {
		return models.NewNotFoundError(err.Error(), err)
	}
	return models.NewValidationError(err.Error(), err)
}
