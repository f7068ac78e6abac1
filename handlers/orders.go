package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"freshcart-api/middleware"
	"freshcart-api/models"
	"freshcart-api/utils"
)

const (
	defaultOrderPageSize = 20
	maxOrderPageSize     = 100
)

type OrderReader interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string, limit int) ([]models.Order, error)
}

type OrderHandler struct {
	sessions *SessionResolver
	checkout CheckoutService
	orders   OrderReader
	logger   *zap.Logger
}

func NewOrderHandler(sessions *SessionResolver, svc CheckoutService, orders OrderReader, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{sessions: sessions, checkout: svc, orders: orders, logger: logger}
}

func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	var req models.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	order, err := h.checkout.PlaceOrder(r.Context(), sess, req)
	if err != nil {
		if appErr, ok := models.AsAppError(err); ok && appErr.Kind == models.KindExternal {
			h.logger.Error("order placement failed",
				zap.String("request_id", middleware.GetRequestID(r.Context())),
				zap.String("session_id", sess.ID()),
				zap.String("checkout_id", req.CheckoutID),
				zap.Error(err))
		}
		utils.SendAppError(w, err)
		return
	}

	utils.SendResponse(w, http.StatusCreated, models.APIResponse{
		Status:  "success",
		Message: "Order placed",
		Data:    order,
	})
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	limit := defaultOrderPageSize
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			utils.SendErrorResponse(w, http.StatusBadRequest, "limit must be a positive number")
			return
		}
		if n > maxOrderPageSize {
			n = maxOrderPageSize
		}
		limit = n
	}

	orders, err := h.orders.ListOrdersByCustomer(r.Context(), user.CustomerID, limit)
	if err != nil {
		h.logger.Error("failed to list orders", zap.String("customer_id", user.CustomerID), zap.Error(err))
		utils.SendAppError(w, err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Orders retrieved",
		Data:    orders,
	})
}

// GetOrder only returns orders owned by the caller. Other customers' orders
// look the same as missing ones.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		utils.SendErrorResponse(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	order, err := h.orders.GetOrderByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Order not found")
			return
		}
		h.logger.Error("failed to get order", zap.Error(err))
		utils.SendAppError(w, err)
		return
	}
	if order.CustomerID != user.CustomerID {
		utils.SendErrorResponse(w, http.StatusNotFound, "Order not found")
		return
	}

	utils.SendSuccessResponse(w, models.APIResponse{
		Status:  "success",
		Message: "Order retrieved",
		Data:    order,
	})
}
