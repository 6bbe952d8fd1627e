package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/service"
	"github.com/mmeshcher/shopledger/internal/validation"
)

type currencyRequest struct {
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Sign      string          `json:"sign"`
	Rate      decimal.Decimal `json:"rate"`
	Decimals  int32           `json:"decimals"`
	IsDefault bool            `json:"isDefault"`
}

// CreateCurrency создаёт валюту.
func (h *Handler) CreateCurrency(w http.ResponseWriter, r *http.Request) {
	var req currencyRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCurrency(r.Context(), service.CurrencyInput{
		Name:      req.Name,
		Symbol:    req.Symbol,
		Sign:      req.Sign,
		Rate:      req.Rate,
		Decimals:  req.Decimals,
		IsDefault: req.IsDefault,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newCurrencyResponse(c))
}

// ListCurrencies возвращает все валюты.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListCurrencies(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCurrencyList(list))
}

// GetCurrency возвращает валюту по идентификатору.
func (h *Handler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidPublicID(id) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid currency id")
		return
	}

	c, err := h.service.GetCurrency(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCurrencyResponse(c))
}

// SetDefaultCurrency делает валюту валютой по умолчанию.
func (h *Handler) SetDefaultCurrency(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidPublicID(id) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid currency id")
		return
	}

	c, err := h.service.SetDefault(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCurrencyResponse(c))
}

// RefreshRates обновляет курсы из внешнего сервиса.
func (h *Handler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.RefreshRates(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newCurrencyList(list))
}
