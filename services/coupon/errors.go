package coupon

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"freshcart-api/utils"
)

var (
	ErrEmptyCode          = errors.New("please enter a coupon code")
	ErrNotFoundOrInactive = errors.New("invalid or inactive coupon code")
	ErrExpired            = errors.New("this coupon has expired")
	ErrNotYetValid        = errors.New("this coupon is not yet valid")
	ErrBelowMinimum       = errors.New("order is below the coupon minimum")
	ErrLimitReached       = errors.New("this coupon has reached its usage limit")

	// ErrSuperseded is returned to a validation whose result was discarded
	// because a newer request for the same session took its place.
	ErrSuperseded = errors.New("coupon validation superseded by a newer request")
)

// BelowMinimumError reports the minimum the customer has to reach.
type BelowMinimumError struct {
	MinOrderAmount decimal.Decimal
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("minimum order amount of %s required for this coupon", utils.FormatRupees(e.MinOrderAmount))
}

func (e *BelowMinimumError) Unwrap() error {
	return ErrBelowMinimum
}
