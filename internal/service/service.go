// Package service реализует бизнес-логику магазина: пользователей, валюты,
// журнал проводок и оформление заказов.
package service

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

const (
	publicIDLength    = 21
	secureTokenLength = 33
)

// Имена событий, публикуемых после фиксации транзакции.
const (
	EventOrderPlaced         = "order.placed"
	EventTransactionVerified = "transaction.verified"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	InTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateUser(ctx context.Context, u *model.User) error
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	GetUserByPublicID(ctx context.Context, publicID string) (*model.User, error)
	LockUser(ctx context.Context, publicID string) (*model.User, error)
	UpdateUser(ctx context.Context, publicID string, u repository.UserUpdate) (*model.User, error)
	SoftDeleteUser(ctx context.Context, publicID string) error

	CreateCurrency(ctx context.Context, c *model.Currency) error
	GetCurrencyByPublicID(ctx context.Context, publicID string) (*model.Currency, error)
	ListCurrencies(ctx context.Context) ([]model.Currency, error)
	ListDefaultCurrencies(ctx context.Context) ([]model.Currency, error)
	LockCurrencies(ctx context.Context) ([]model.Currency, error)
	UpdateCurrencyRates(ctx context.Context, updates []repository.CurrencyRate) error

	CreateTransaction(ctx context.Context, t *model.Transaction) error
	ListTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error)
	ListTransactionsByReceiver(ctx context.Context, receiverID int64) ([]model.Transaction, error)
	GetTransactionByPublicID(ctx context.Context, publicID string) (*model.Transaction, error)
	LockTransaction(ctx context.Context, publicID string) (*model.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id int64, status model.TransactionStatus) error

	CreateArticle(ctx context.Context, a *model.Article) error
	GetArticleByPublicID(ctx context.Context, publicID string) (*model.Article, error)
	ListArticles(ctx context.Context) ([]model.Article, error)
	LockArticlesByPublicIDs(ctx context.Context, publicIDs []string) ([]model.Article, error)
	UpdateArticle(ctx context.Context, publicID string, u repository.ArticleUpdate) (*model.Article, error)
	SoftDeleteArticle(ctx context.Context, publicID string) error
	DecrementStock(ctx context.Context, articleID, qty int64) error

	CreateOrder(ctx context.Context, o *model.Order) error
	GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Order, error)
	ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error
}

// RateSource возвращает курсы валют symbols относительно base.
type RateSource interface {
	FetchRates(ctx context.Context, base string, symbols []string) (map[string]decimal.Decimal, error)
}

// EventPublisher публикует доменные события во внешнюю систему.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo   Repository
	rates  RateSource
	events EventPublisher
	logger *zap.Logger
}

// NewService создаёт сервис. rates и events могут быть nil: тогда обновление курсов
// недоступно, а события не публикуются.
func NewService(repo Repository, rates RateSource, events EventPublisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		rates:  rates,
		events: events,
		logger: logger,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

func (s *Service) publish(ctx context.Context, routingKey string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, routingKey, payload); err != nil {
		s.logger.Warn("publish event", zap.String("routingKey", routingKey), zap.Error(err))
	}
}

func newPublicID() (string, error) {
	id, err := gonanoid.New(publicIDLength)
	if err != nil {
		return "", fmt.Errorf("generate public id: %w", err)
	}
	return id, nil
}

func newSecureToken() (string, error) {
	token, err := gonanoid.New(secureTokenLength)
	if err != nil {
		return "", fmt.Errorf("generate secure token: %w", err)
	}
	return token, nil
}
