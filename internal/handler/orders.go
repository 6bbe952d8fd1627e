package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/service"
	"github.com/mmeshcher/shopledger/internal/validation"
)

// Цены из запроса принимаются, но не используются: заказ оценивается по каталогу.
type orderLineRequest struct {
	ArticleID string           `json:"articleId"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unitPrice,omitempty"`
}

type placeOrderRequest struct {
	ReceiverID string             `json:"receiverId"`
	Details    []orderLineRequest `json:"details"`
	Status     model.OrderStatus  `json:"status,omitempty"`
	Total      *decimal.Decimal   `json:"total,omitempty"`
}

type orderStatusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// PlaceOrder оформляет заказ текущего пользователя.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req placeOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	if !validation.IsValidPublicID(req.ReceiverID) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid receiverId")
		return
	}

	lines := make([]service.CartLine, 0, len(req.Details))
	for _, d := range req.Details {
		lines = append(lines, service.CartLine{ArticleID: d.ArticleID, Quantity: d.Quantity})
	}

	o, err := h.service.PlaceOrder(r.Context(), service.PlaceOrderInput{
		BuyerID:    userID,
		ReceiverID: req.ReceiverID,
		Lines:      lines,
		Status:     req.Status,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newOrderResponse(o))
}

// ListOrders возвращает заказы текущего пользователя.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListOrders(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := make([]orderResponse, 0, len(list))
	for i := range list {
		res = append(res, newOrderResponse(&list[i]))
	}
	h.writeJSON(w, http.StatusOK, res)
}

// GetOrder возвращает заказ по трек-номеру.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	o, err := h.service.GetOrder(r.Context(), chi.URLParam(r, "trackingNumber"), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}

// UpdateOrderStatus меняет статус заказа.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req orderStatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.UpdateOrderStatus(r.Context(), chi.URLParam(r, "trackingNumber"), userID, req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newOrderResponse(o))
}
