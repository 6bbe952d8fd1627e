// Package handler содержит HTTP-обработчики API сервиса магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/middleware"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/service"
)

const maxBodySize = 1 << 20

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	SignUp(ctx context.Context, in service.SignUpInput) (*model.User, error)
	Login(ctx context.Context, email, password string) (*model.User, error)
	GetUser(ctx context.Context, publicID string) (*model.User, error)
	UpdateUser(ctx context.Context, publicID string, p service.UserPatch) (*model.User, error)
	DeleteUser(ctx context.Context, publicID string) error
	BalanceOf(ctx context.Context, userPublicID string) (*model.Balance, error)

	CreateCurrency(ctx context.Context, in service.CurrencyInput) (*model.Currency, error)
	GetCurrency(ctx context.Context, publicID string) (*model.Currency, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	SetDefault(ctx context.Context, publicID string) (*model.Currency, error)
	RefreshRates(ctx context.Context) ([]model.Currency, error)

	RecordTransfer(ctx context.Context, userPublicID, receiverPublicID string, amount decimal.Decimal) (*model.Transaction, error)
	Verify(ctx context.Context, transactionPublicID, secureToken, receiverPublicID string) (*model.Transaction, error)
	ListPaidTransactions(ctx context.Context, userPublicID string) ([]model.Transaction, error)
	ListReceivedTransactions(ctx context.Context, userPublicID string) ([]model.Transaction, error)
	GetTransaction(ctx context.Context, transactionPublicID, userPublicID string) (*model.Transaction, error)

	CreateArticle(ctx context.Context, in service.ArticleInput) (*model.Article, error)
	GetArticle(ctx context.Context, publicID string) (*model.Article, error)
	ListArticles(ctx context.Context) ([]model.Article, error)
	UpdateArticle(ctx context.Context, publicID string, p service.ArticlePatch) (*model.Article, error)
	DeleteArticle(ctx context.Context, publicID string) error

	PlaceOrder(ctx context.Context, in service.PlaceOrderInput) (*model.Order, error)
	GetOrder(ctx context.Context, trackingNumber, userPublicID string) (*model.Order, error)
	ListOrders(ctx context.Context, userPublicID string) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, trackingNumber, userPublicID string, status model.OrderStatus) (*model.Order, error)
}

// Handler реализует HTTP-обработчики API сервиса магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type envelope struct {
	Error   bool `json:"error"`
	Message any  `json:"message"`
	Status  int  `json:"status"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, message any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: status >= http.StatusBadRequest, Message: message, Status: status}); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	status := kind.HTTPStatus()

	if kind == apperror.KindInternal || kind == apperror.KindUnavailable {
		fields := []zap.Field{
			zap.Error(err),
			zap.String("requestID", middleware.GetRequestIDFromContext(r.Context())),
			zap.String("path", r.URL.Path),
		}
		var appErr *apperror.Error
		if errors.As(err, &appErr) && appErr.Step != "" {
			fields = append(fields, zap.String("step", appErr.Step), zap.Bool("maybeCommitted", appErr.Committed()))
		}
		h.logger.Error("request failed", fields...)
	}

	h.writeJSON(w, status, apperror.MessageOf(err))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeJSON(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeJSON(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized))
		return "", false
	}
	return userID, true
}

// HealthCheck отвечает, что сервис жив.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, "OK")
}
