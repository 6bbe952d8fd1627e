package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/money"
	"github.com/mmeshcher/shopledger/internal/repository"
)

// CartLine описывает строку корзины. Цену задаёт каталог, а не клиент.
type CartLine struct {
	ArticleID string
	Quantity  int64
}

// PlaceOrderInput содержит данные для оформления заказа.
type PlaceOrderInput struct {
	BuyerID    string
	ReceiverID string
	Lines      []CartLine
	Status     model.OrderStatus
}

// OrderPlacedEvent публикуется после фиксации заказа.
type OrderPlacedEvent struct {
	TrackingNumber string          `json:"trackingNumber"`
	TransactionID  string          `json:"transactionId"`
	BuyerID        string          `json:"buyerId"`
	ReceiverID     string          `json:"receiverId"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	PlacedAt       time.Time       `json:"placedAt"`
}

// PlaceOrder проверяет корзину и баланс покупателя и в одной транзакции записывает
// кредитовую проводку покупатель → получатель, заказ и списание со склада.
//
// Ошибки проверки возвращаются как BadRequest или NotFound и означают, что ничего
// не записано. Внутренние ошибки помечаются шагом; только apperror.StepCommit
// означает, что исход записи неизвестен.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (*model.Order, error) {
	if err := validateOrderInput(&in); err != nil {
		return nil, err
	}

	txPublicID, err := newPublicID()
	if err != nil {
		return nil, apperror.SettlementFailed(apperror.StepCommitLedger, err)
	}
	trackingNumber, err := newPublicID()
	if err != nil {
		return nil, apperror.SettlementFailed(apperror.StepCommitOrder, err)
	}

	var (
		order *model.Order
		def   *model.Currency
		buyer *model.User
	)

	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		var receiver *model.User
		var err error

		// блокировка покупателя сериализует его покупки и переводы
		buyer, err = s.repo.LockUser(ctx, in.BuyerID)
		if err != nil {
			return partyError(err, "User not found")
		}
		receiver, err = s.repo.GetUserByPublicID(ctx, in.ReceiverID)
		if err != nil {
			return partyError(err, "Receiver not found")
		}

		currencies, err := s.repo.ListCurrencies(ctx)
		if err != nil {
			return apperror.SettlementFailed(apperror.StepPriceCart, err)
		}
		def, err = pickDefault(currencies)
		if err != nil {
			return apperror.SettlementFailed(apperror.StepPriceCart, err)
		}

		details, articles, err := s.priceCart(ctx, in.Lines, currencies, def)
		if err != nil {
			return err
		}

		total := orderTotal(details, def.Rate)

		balance, err := s.balance(ctx, buyer.ID)
		if err != nil {
			return apperror.SettlementFailed(apperror.StepCheckBalance, err)
		}
		if balance.LessThan(total) {
			return apperror.BadRequest(fmt.Sprintf("Insufficient funds: balance %s, order total %s",
				money.Format(balance, def), money.Format(total, def)))
		}

		tr := &model.Transaction{
			PublicID:         txPublicID,
			UserID:           buyer.ID,
			UserPublicID:     buyer.PublicID,
			ReceiverID:       receiver.ID,
			ReceiverPublicID: receiver.PublicID,
			Amount:           total,
			CurrencyID:       def.ID,
			Status:           model.TransactionStatusPending,
			Entry:            model.EntryCredit,
		}
		if err := s.repo.CreateTransaction(ctx, tr); err != nil {
			return apperror.SettlementFailed(apperror.StepCommitLedger, err)
		}

		order = &model.Order{
			TrackingNumber:      trackingNumber,
			TransactionID:       tr.ID,
			TransactionPublicID: tr.PublicID,
			UserID:              buyer.ID,
			ReceiverID:          receiver.ID,
			ReceiverPublicID:    receiver.PublicID,
			CurrencyID:          def.ID,
			CurrencyRate:        def.Rate,
			Total:               total,
			Details:             details,
			Status:              in.Status,
		}
		if err := s.repo.CreateOrder(ctx, order); err != nil {
			return apperror.SettlementFailed(apperror.StepCommitOrder, err)
		}

		for _, d := range details {
			if articles[d.ArticleID].IsVirtual {
				continue
			}
			if err := s.repo.DecrementStock(ctx, d.ArticleID, d.Quantity); err != nil {
				if errors.Is(err, repository.ErrInsufficientStock) {
					return apperror.BadRequest("Insufficient stock for article " + d.ArticlePublicID)
				}
				return apperror.SettlementFailed(apperror.StepCommitStock, err)
			}
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrCommit) {
			s.logger.Error("order commit outcome unknown",
				zap.String("trackingNumber", trackingNumber), zap.String("buyerID", in.BuyerID), zap.Error(err))
			return nil, apperror.SettlementFailed(apperror.StepCommit, err)
		}
		return nil, asAppError(err, "Order not saved")
	}

	s.publish(ctx, EventOrderPlaced, OrderPlacedEvent{
		TrackingNumber: order.TrackingNumber,
		TransactionID:  order.TransactionPublicID,
		BuyerID:        buyer.PublicID,
		ReceiverID:     order.ReceiverPublicID,
		Total:          order.Total,
		Currency:       def.Symbol,
		PlacedAt:       order.CreatedAt,
	})

	return order, nil
}

func validateOrderInput(in *PlaceOrderInput) error {
	if in.ReceiverID == "" {
		return apperror.BadRequest("Missing required field: receiverId")
	}
	if len(in.Lines) == 0 {
		return apperror.BadRequest("Missing required field: details")
	}
	for _, l := range in.Lines {
		if l.ArticleID == "" {
			return apperror.BadRequest("Missing required field: articleId")
		}
		if l.Quantity <= 0 {
			return apperror.BadRequest("Quantity must be positive")
		}
	}

	if in.Status == "" {
		in.Status = model.OrderStatusCompleted
	}
	if !in.Status.Valid() {
		return apperror.BadRequest("Invalid status")
	}
	return nil
}

func partyError(err error, notFoundMsg string) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return apperror.NotFound(notFoundMsg)
	}
	return apperror.SettlementFailed(apperror.StepResolveParties, err)
}

// priceCart блокирует товары корзины и фиксирует их цены в валюте по умолчанию.
func (s *Service) priceCart(ctx context.Context, lines []CartLine, currencies []model.Currency, def *model.Currency) ([]model.OrderDetail, map[int64]model.Article, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ArticleID)
	}

	found, err := s.repo.LockArticlesByPublicIDs(ctx, ids)
	if err != nil {
		return nil, nil, apperror.SettlementFailed(apperror.StepPriceCart, err)
	}

	byPublicID := make(map[string]model.Article, len(found))
	byID := make(map[int64]model.Article, len(found))
	for _, a := range found {
		byPublicID[a.PublicID] = a
		byID[a.ID] = a
	}

	rates := make(map[int64]decimal.Decimal, len(currencies))
	for _, c := range currencies {
		rates[c.ID] = c.Rate
	}

	details := make([]model.OrderDetail, 0, len(lines))
	for _, l := range lines {
		a, ok := byPublicID[l.ArticleID]
		if !ok {
			return nil, nil, apperror.BadRequest("Invalid articleId")
		}
		if !a.IsAvailable {
			return nil, nil, apperror.BadRequest("Article is not available: " + a.PublicID)
		}
		rate, ok := rates[a.CurrencyID]
		if !ok {
			return nil, nil, apperror.SettlementFailed(apperror.StepPriceCart,
				fmt.Errorf("currency %d of article %s: %w", a.CurrencyID, a.PublicID, repository.ErrCurrencyNotFound))
		}

		details = append(details, model.OrderDetail{
			ArticleID:       a.ID,
			ArticlePublicID: a.PublicID,
			UnitPrice:       money.Convert(a.UnitPrice, rate, def.Decimals),
			Quantity:        l.Quantity,
		})
	}

	return details, byID, nil
}

// orderTotal считает Σ(цена × количество) × курс валюты по умолчанию.
func orderTotal(details []model.OrderDetail, rate decimal.Decimal) decimal.Decimal {
	subtotal := decimal.Zero
	for _, d := range details {
		subtotal = subtotal.Add(d.UnitPrice.Mul(decimal.NewFromInt(d.Quantity)))
	}
	return subtotal.Mul(rate)
}
