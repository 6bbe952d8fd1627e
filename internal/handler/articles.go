package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/service"
	"github.com/mmeshcher/shopledger/internal/validation"
)

type articleRequest struct {
	SKU              string          `json:"sku"`
	Title            string          `json:"title"`
	ShortDescription string          `json:"shortDescription"`
	Unity            string          `json:"unity"`
	QtyStock         int64           `json:"qtyStock"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	IsVirtual        bool            `json:"isVirtual"`
	IsAvailable      *bool           `json:"isAvailable"`
}

type articlePatchRequest struct {
	Title            *string          `json:"title"`
	ShortDescription *string          `json:"shortDescription"`
	Unity            *string          `json:"unity"`
	QtyStock         *int64           `json:"qtyStock"`
	UnitPrice        *decimal.Decimal `json:"unitPrice"`
	IsVirtual        *bool            `json:"isVirtual"`
	IsAvailable      *bool            `json:"isAvailable"`
}

// CreateArticle создаёт товар в каталоге.
func (h *Handler) CreateArticle(w http.ResponseWriter, r *http.Request) {
	var req articleRequest
	if !h.decode(w, r, &req) {
		return
	}

	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	a, err := h.service.CreateArticle(r.Context(), service.ArticleInput{
		SKU:              req.SKU,
		Title:            req.Title,
		ShortDescription: req.ShortDescription,
		Unity:            req.Unity,
		QtyStock:         req.QtyStock,
		UnitPrice:        req.UnitPrice,
		IsVirtual:        req.IsVirtual,
		IsAvailable:      available,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, newArticleResponse(a))
}

// ListArticles возвращает каталог без удалённых товаров.
func (h *Handler) ListArticles(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListArticles(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res := make([]articleResponse, 0, len(list))
	for i := range list {
		res = append(res, newArticleResponse(&list[i]))
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) articleID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if !validation.IsValidPublicID(id) {
		h.writeJSON(w, http.StatusBadRequest, "Invalid article id")
		return "", false
	}
	return id, true
}

// GetArticle возвращает товар.
func (h *Handler) GetArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}

	a, err := h.service.GetArticle(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newArticleResponse(a))
}

// UpdateArticle частично обновляет товар.
func (h *Handler) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}

	var req articlePatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	a, err := h.service.UpdateArticle(r.Context(), id, service.ArticlePatch(req))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, newArticleResponse(a))
}

// DeleteArticle помечает товар удалённым.
func (h *Handler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.articleID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteArticle(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
