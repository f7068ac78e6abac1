package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"freshcart-api/models"
	"freshcart-api/services/pricing"
	"freshcart-api/services/session"
	"freshcart-api/utils"
)

type CartHandler struct {
	sessions *SessionResolver
	catalog  ProductCatalog
	logger   *zap.Logger
}

func NewCartHandler(sessions *SessionResolver, catalog ProductCatalog, logger *zap.Logger) *CartHandler {
	return &CartHandler{sessions: sessions, catalog: catalog, logger: logger}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Cart retrieved", http.StatusOK)
}

// AddItem prices the line from the catalog. Client-sent prices are never used.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	var req models.AddToCartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ProductID == "" {
		utils.SendErrorResponse(w, http.StatusBadRequest, "product_id is required")
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), req.ProductID)
	if err != nil {
		if errors.Is(err, models.ErrRecordNotFound) {
			utils.SendErrorResponse(w, http.StatusNotFound, "Product not found")
			return
		}
		h.logger.Error("failed to load product for cart", zap.String("product_id", req.ProductID), zap.Error(err))
		utils.SendAppError(w, err)
		return
	}
	if !product.IsActive {
		utils.SendErrorResponse(w, http.StatusNotFound, "Product not found")
		return
	}

	if err := sess.AddProduct(r.Context(), *product, req.Quantity); err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Item added to cart", http.StatusCreated)
}

func (h *CartHandler) Increment(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	if err := sess.Increment(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Cart updated", http.StatusOK)
}

func (h *CartHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	removed, err := sess.Decrement(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	message := "Cart updated"
	if removed {
		message = "Item removed from cart"
	}
	h.sendCart(w, sess, message, http.StatusOK)
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}

	var req models.SetQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendErrorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := sess.SetQuantity(r.Context(), mux.Vars(r)["id"], req.Quantity); err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Cart updated", http.StatusOK)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	if err := sess.RemoveLine(r.Context(), mux.Vars(r)["id"]); err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Item removed from cart", http.StatusOK)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess, err := h.sessions.Resolve(w, r)
	if err != nil {
		utils.SendAppError(w, err)
		return
	}
	if err := sess.Clear(r.Context()); err != nil {
		utils.SendAppError(w, err)
		return
	}
	h.sendCart(w, sess, "Cart cleared", http.StatusOK)
}

func (h *CartHandler) sendCart(w http.ResponseWriter, sess *session.Session, message string, status int) {
	utils.SendResponse(w, status, models.APIResponse{
		Status:  "success",
		Message: message,
		Data:    cartResponse(sess.Snapshot().Lines),
	})
}

func cartResponse(lines []models.CartLine) models.CartResponse {
	totals := pricing.Aggregate(lines)
	if lines == nil {
		lines = []models.CartLine{}
	}
	return models.CartResponse{
		Lines:         lines,
		Subtotal:      totals.Subtotal,
		TotalWeightKg: totals.TotalWeightKg,
		TotalPieces:   totals.TotalPieces,
	}
}
