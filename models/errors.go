package models

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by repositories when a lookup matches no row.
var ErrRecordNotFound = errors.New("record not found")

// ErrDuplicateCheckout is returned when an order already exists for a checkout ID.
var ErrDuplicateCheckout = errors.New("order already placed for checkout")

var ErrEmailTaken = errors.New("email already registered")

// ErrorKind classifies failures the way they are surfaced to the customer.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindExternal   ErrorKind = "external"
	KindConflict   ErrorKind = "conflict"
)

// AppError carries a customer-facing message together with the underlying cause.
// Only Message is ever written to a response.
type AppError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewValidationError(message string, err error) *AppError {
	return &AppError{Kind: KindValidation, Message: message, Err: err}
}

func NewNotFoundError(message string, err error) *AppError {
	return &AppError{Kind: KindNotFound, Message: message, Err: err}
}

// NewExternalError wraps a store or transport failure behind a generic retryable message.
func NewExternalError(err error) *AppError {
	return &AppError{Kind: KindExternal, Message: "Something went wrong, please try again", Err: err}
}

func NewConflictError(message string, err error) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Err: err}
}

// AsAppError returns the first *AppError in err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
