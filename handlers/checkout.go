package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/services/checkout"
	"freshcart-api/services/session"
	"freshcart-api/utils"
)

// CheckoutService is the subset of checkout.Service the HTTP layer drives.
type CheckoutService interface {
	Quote(ctx context.Context, sess *session.Session) (*models.Quote, error)
	ApplyCoupon(ctx context.Context, sess *session.Session, code string) (*models.AppliedCoupon, error)
	RemoveCoupon(ctx context.Context, sess *session.Session) error
	CheckPinCode(ctx context.Context, sess *session.Session, raw string) (models.PinCodeStatus, error)
	RequestDelivery(ctx context.Context, sess *session.Session, in models.CreateDeliveryRequest) (*models.DeliveryRequest, error)
	PlaceOrder(ctx context.Context, sess *session.Session, req models.PlaceOrderRequest) (*models.Order, error)
}

var _ CheckoutService = (*checkout.Service)(nil)

type CheckoutHandler struct {
	sessions *SessionResolver
	checkout CheckoutService
	logger   *zap.Logger
}

func NewCheckoutHandler(sessions *SessionResolver, svc CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions, checkout: svc, logger: logger}
}

func (h *CheckoutHandler) Quote(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	quote, err := h.checkout.Quote(r.Context(), sess)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Quote computed",
		Data:    quote,
	})
}

func (h *CheckoutHandler) GenerateCheckoutID(w http.ResponseWriter, r *http.Request) {
	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Checkout ID generated",
		Data:    map[string]string{"checkout_id": checkout.NewCheckoutID()},
	})
}

func (h *CheckoutHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	var req models.ApplyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	applied, err := h.checkout.ApplyCoupon(r.Context(), sess, req.Code)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: applied.Message,
		Data:    applied,
	})
}

func (h *CheckoutHandler) RemoveCoupon(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	if err := h.checkout.RemoveCoupon(r.Context(), sess); err != nil {
		utils.SendAppError(w, err)
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Coupon removed",
	})
}

// CheckPinCode always answers with the gate status. Lookup failures come back
// as 503 with the status still "checking" so the client can retry.
func (h *CheckoutHandler) CheckPinCode(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	status, err := h.checkout.CheckPinCode(r.Context(), sess, mux.Vars(r)["code"])
	if err != nil {
		appErr, ok := models.AsAppError(err)
		if !ok {
			appErr = models.NewExternalError(err)
		}
		utils.SendResponse(w, utils.StatusForKind(appErr.Kind), models.APIResponse{
			Status:  "error",
			Message: appErr.Message,
			Data:    status,
		})
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: status.Message,
		Data:    status,
	})
}

func (h *CheckoutHandler) RequestDelivery(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	var req models.CreateDeliveryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := h.checkout.RequestDelivery(r.Context(), sess, req)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	h.logger.Info("delivery request filed", zap.String("request_id", created.ID), zap.String("pin_code", created.PinCode))
	utils.SendResponse(w, http.StatusCreated, models.APIResponse{
		Status:  "success",
		Message: "Thanks! We'll let you know when we start delivering to your area",
		Data:    created,
	})
}
