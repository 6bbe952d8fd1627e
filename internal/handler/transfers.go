package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/validation"
)

type transferRequest struct {
	ReceiverID string          `json:"receiverId"`
	Amount     decimal.Decimal `json:"amount"`
}

type verifyRequest struct {
	ID string `json:"id"`
}

// ownPath проверяет, что {id} в пути совпадает с текущим пользователем.
func (h *Handler) ownPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return "", false
	}
	if chi.URLParam(r, "id") != userID {
		h.writeJSON(w, http.StatusForbidden, "Access denied")
		return "", false
	}
	return userID, true
}

// CreateTransfer записывает пополнение (без получателя или на себя)
// либо перевод другому пользователю.
func (h *Handler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	var req transferRequest
	if !h.decode(w, r, &req) {
		return
	}

	receiverID := req.ReceiverID
	if receiverID == "" {
		receiverID = userID
	}
	if !validation.IsValidPublicID(receiverID) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid receiverId")
		return
	}

	t, err := h.service.RecordTransfer(r.Context(), userID, receiverID, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newTransactionResponse(t))
}

// ListUserTransfers возвращает проводки, в которых текущий пользователь выступает плательщиком.
func (h *Handler) ListUserTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListPaidTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newTransactionList(list))
}

// ListOwnerTransfers возвращает проводки, в которых текущий пользователь выступает получателем.
func (h *Handler) ListOwnerTransfers(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	list, err := h.service.ListReceivedTransactions(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newTransactionList(list))
}

// GetTransfer возвращает одну проводку текущего пользователя.
func (h *Handler) GetTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.ownPath(w, r)
	if !ok {
		return
	}

	transferID := chi.URLParam(r, "transferId")
	if !validation.IsValidPublicID(transferID) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid transfer id")
		return
	}

	t, err := h.service.GetTransaction(r.Context(), transferID, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newTransactionResponse(t))
}

// VerifyTransfer подтверждает ожидающую проводку, адресованную текущему пользователю.
func (h *Handler) VerifyTransfer(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	token := chi.URLParam(r, "secureToken")
	if !validation.IsValidSecureToken(token) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid secureToken")
		return
	}

	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !validation.IsValidPublicID(req.ID) {
		h.writeJSON(w, http.StatusBadRequest, "Missing required field: id")
		return
	}

	t, err := h.service.Verify(r.Context(), req.ID, token, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newTransactionResponse(t))
}
