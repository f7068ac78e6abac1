package pincode

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"freshcart-api/models"
)

const pinCodeLength = 6

type PinCodeStore interface {
	LookupPinCode(ctx context.Context, pinCode string) (*models.PinCodeRecord, error)
}

// Gate resolves a typed pin code into a delivery status. Codes outside the
// configured regional prefix are answered locally as Invalid.
type Gate struct {
	store  PinCodeStore
	prefix string
	logger *zap.Logger
}

func NewGate(store PinCodeStore, regionalPrefix string, logger *zap.Logger) *Gate {
	return &Gate{store: store, prefix: regionalPrefix, logger: logger}
}

// Classify performs the synchronous part of the check: it never calls the store
// and returns Checking for a well-formed code.
func Classify(raw string) models.PinCodeStatus {
	code := strings.TrimSpace(raw)
	if code == "" {
		return models.PinCodeStatus{State: models.PinEmpty}
	}
	if len(code) != pinCodeLength || !isDigits(code) {
		return models.PinCodeStatus{
			State:   models.PinFormatInvalid,
			PinCode: code,
			Message: "Please enter a valid 6-digit pin code",
		}
	}
	return models.PinCodeStatus{State: models.PinChecking, PinCode: code}
}

// Check runs the full state machine. On a store failure the returned status
// stays Checking and the error is an external AppError.
func (g *Gate) Check(ctx context.Context, raw string) (models.PinCodeStatus, error) {
	status := Classify(raw)
	if status.State != models.PinChecking {
		return status, nil
	}

	if g.prefix != "" && !strings.HasPrefix(status.PinCode, g.prefix) {
		return invalid(status.PinCode), nil
	}

	record, err := g.store.LookupPinCode(ctx, status.PinCode)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			return invalid(status.PinCode), nil
		}
		g.logger.Error("pin code lookup failed", zap.String("pin_code", status.PinCode), zap.Error(err))
		status.Message = "Could not check this pin code, please try again"
		return status, models.NewExternalError(err)
	}
	if !record.IsActive {
		return invalid(status.PinCode), nil
	}

	return models.PinCodeStatus{
		State:   models.PinValid,
		PinCode: status.PinCode,
		Area:    record.Area,
		Message: "We deliver to " + record.Area,
	}, nil
}

func invalid(code string) models.PinCodeStatus {
	return models.PinCodeStatus{
		State:   models.PinInvalid,
		PinCode: code,
		Message: "Sorry, we do not deliver to this pin code yet. You can request delivery to your area.",
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
