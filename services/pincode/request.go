package pincode

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/utils"
)

type DeliveryRequestStore interface {
	CreateDeliveryRequest(ctx context.Context, req *models.DeliveryRequest) (string, error)
}

type DeliveryRequestNotifier interface {
	NotifyDeliveryRequest(ctx context.Context, req *models.DeliveryRequest) error
}

// Requester files "please deliver here" requests for pin codes the gate
// rejected. It never re-runs the lookup.
type Requester struct {
	store    DeliveryRequestStore
	notifier DeliveryRequestNotifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewRequester(store DeliveryRequestStore, notifier DeliveryRequestNotifier, logger *zap.Logger) *Requester {
	return &Requester{store: store, notifier: notifier, logger: logger, now: time.Now}
}

// RequestDelivery is only allowed while status is Invalid for the same pin code.
func (r *Requester) RequestDelivery(ctx context.Context, status models.PinCodeStatus, in models.CreateDeliveryRequest) (*models.DeliveryRequest, error) {
	if status.State != models.PinInvalid {
		return nil, models.NewValidationError("Delivery can only be requested for a pin code we do not serve yet", nil)
	}
	pin := strings.TrimSpace(in.PinCode)
	if pin == "" {
		pin = status.PinCode
	}
	if pin != status.PinCode {
		return nil, models.NewValidationError("Pin code does not match the one checked", nil)
	}
	if err := validateContact(in); err != nil {
		return nil, err
	}

	req := &models.DeliveryRequest{
		ID:        uuid.New().String(),
		PinCode:   pin,
		Area:      strings.TrimSpace(in.Area),
		Name:      strings.TrimSpace(in.Name),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Message:   strings.TrimSpace(in.Message),
		CreatedAt: r.now().UTC(),
		Processed: false,
	}

	id, err := r.store.CreateDeliveryRequest(ctx, req)
	if err != nil {
		r.logger.Error("failed to create delivery request", zap.String("pin_code", pin), zap.Error(err))
		return nil, models.NewExternalError(err)
	}
	if id != "" {
		req.ID = id
	}

	if r.notifier != nil {
		if err := r.notifier.NotifyDeliveryRequest(ctx, req); err != nil {
			r.logger.Warn("delivery request notification failed", zap.String("request_id", req.ID), zap.Error(err))
		}
	}

	r.logger.Info("delivery request created", zap.String("request_id", req.ID), zap.String("pin_code", pin))
	return req, nil
}

func validateContact(in models.CreateDeliveryRequest) error {
	if strings.TrimSpace(in.Name) == "" {
		return models.NewValidationError("Name is required", nil)
	}
	if !utils.ValidPhone(in.Phone) {
		return models.NewValidationError("Please enter a valid phone number", nil)
	}
	if email := strings.TrimSpace(in.Email); email != "" && !utils.ValidEmail(email) {
		return models.NewValidationError("Please enter a valid email address", nil)
	}
	return nil
}
