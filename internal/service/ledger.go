package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/ledger"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/money"
	"github.com/mmeshcher/shopledger/internal/repository"
)

// TransactionVerifiedEvent публикуется после подтверждения проводки получателем.
type TransactionVerifiedEvent struct {
	TransactionID string          `json:"transactionId"`
	UserID        string          `json:"userId"`
	ReceiverID    string          `json:"receiverId"`
	Amount        decimal.Decimal `json:"amount"`
	VerifiedAt    time.Time       `json:"verifiedAt"`
}

// RecordSelfDeposit записывает пополнение собственного счёта: дебет, сразу оплачен.
func (s *Service) RecordSelfDeposit(ctx context.Context, userPublicID string, amount decimal.Decimal) (*model.Transaction, error) {
	return s.RecordTransfer(ctx, userPublicID, userPublicID, amount)
}

// RecordTransfer записывает перевод от пользователя получателю: кредит, ожидает
// подтверждения. Перевод самому себе записывается как пополнение.
func (s *Service) RecordTransfer(ctx context.Context, userPublicID, receiverPublicID string, amount decimal.Decimal) (*model.Transaction, error) {
	if userPublicID == "" || receiverPublicID == "" {
		return nil, apperror.BadRequest("Missing required field: receiverId")
	}
	if amount.IsNegative() {
		return nil, apperror.BadRequest("Amount cannot be negative")
	}

	publicID, err := newPublicID()
	if err != nil {
		return nil, apperror.Internal("User transaction not saved", err)
	}

	var tr *model.Transaction
	err = s.repo.InTx(ctx, func(ctx context.Context) error {
		payer, err := s.repo.LockUser(ctx, userPublicID)
		if err != nil {
			return userLookupError(err)
		}

		receiver := payer
		entry, status := model.EntryDebit, model.TransactionStatusPaid
		if receiverPublicID != userPublicID {
			receiver, err = s.repo.GetUserByPublicID(ctx, receiverPublicID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					return apperror.NotFound("Given to user not found")
				}
				return apperror.Internal("User transaction not saved", err)
			}
			entry, status = model.EntryCredit, model.TransactionStatusPending
		}

		def, err := s.GetDefault(ctx)
		if err != nil {
			return err
		}

		tr = &model.Transaction{
			PublicID:         publicID,
			UserID:           payer.ID,
			UserPublicID:     payer.PublicID,
			ReceiverID:       receiver.ID,
			ReceiverPublicID: receiver.PublicID,
			Amount:           amount,
			CurrencyID:       def.ID,
			Status:           status,
			Entry:            entry,
		}
		if err := s.repo.CreateTransaction(ctx, tr); err != nil {
			return apperror.Internal("User transaction not saved", err)
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "User transaction not saved")
	}

	return tr, nil
}

// Verify подтверждает ожидающую проводку. Проводка ищется по своему идентификатору
// и секретному токену получателя; receiverPublicID задаёт текущего пользователя.
// Повторное подтверждение отклоняется.
func (s *Service) Verify(ctx context.Context, transactionPublicID, secureToken, receiverPublicID string) (*model.Transaction, error) {
	if secureToken == "" {
		return nil, apperror.BadRequest("Missing required field: secureToken")
	}
	if transactionPublicID == "" {
		return nil, apperror.BadRequest("Missing required field: id")
	}

	var tr *model.Transaction
	err := s.repo.InTx(ctx, func(ctx context.Context) error {
		receiver, err := s.repo.GetUserByPublicID(ctx, receiverPublicID)
		if err != nil {
			return userLookupError(err)
		}

		found, err := s.repo.LockTransaction(ctx, transactionPublicID)
		if err != nil {
			if errors.Is(err, repository.ErrTransactionNotFound) {
				return apperror.NotFound("User transaction not found")
			}
			return apperror.Internal("User transaction not saved", err)
		}
		if found.ReceiverID != receiver.ID || receiver.SecureToken != secureToken {
			return apperror.NotFound("User transaction not found")
		}

		if found.Status == model.TransactionStatusPaid {
			return apperror.BadRequest("The transaction is already paid")
		}

		if err := s.repo.UpdateTransactionStatus(ctx, found.ID, model.TransactionStatusPaid); err != nil {
			return apperror.Internal("User transaction not saved", err)
		}
		found.Status = model.TransactionStatusPaid
		tr = found
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "User transaction not saved")
	}

	s.publish(ctx, EventTransactionVerified, TransactionVerifiedEvent{
		TransactionID: tr.PublicID,
		UserID:        tr.UserPublicID,
		ReceiverID:    tr.ReceiverPublicID,
		Amount:        tr.Amount,
		VerifiedAt:    time.Now().UTC(),
	})

	return tr, nil
}

// BalanceOf возвращает баланс пользователя по журналу проводок в валюте по умолчанию.
func (s *Service) BalanceOf(ctx context.Context, userPublicID string) (*model.Balance, error) {
	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}

	amount, err := s.balance(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	def, err := s.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	return &model.Balance{
		Amount:    amount,
		Formatted: money.Format(amount, def),
		Currency:  def.Symbol,
	}, nil
}

func (s *Service) balance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	entries, err := s.repo.ListTransactionsByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, apperror.Internal("User transactions lookup failed", err)
	}
	return ledger.Fold(entries), nil
}

// ListPaidTransactions возвращает проводки, в которых пользователь выступает плательщиком.
func (s *Service) ListPaidTransactions(ctx context.Context, userPublicID string) ([]model.Transaction, error) {
	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}
	res, err := s.repo.ListTransactionsByUser(ctx, u.ID)
	if err != nil {
		return nil, apperror.Internal("User transactions lookup failed", err)
	}
	return res, nil
}

// ListReceivedTransactions возвращает проводки, в которых пользователь выступает получателем.
func (s *Service) ListReceivedTransactions(ctx context.Context, userPublicID string) ([]model.Transaction, error) {
	u, err := s.repo.GetUserByPublicID(ctx, userPublicID)
	if err != nil {
		return nil, userLookupError(err)
	}
	res, err := s.repo.ListTransactionsByReceiver(ctx, u.ID)
	if err != nil {
		return nil, apperror.Internal("User transactions lookup failed", err)
	}
	return res, nil
}

// GetTransaction возвращает проводку, если пользователь является её плательщиком или получателем.
func (s *Service) GetTransaction(ctx context.Context, transactionPublicID, userPublicID string) (*model.Transaction, error) {
	tr, err := s.repo.GetTransactionByPublicID(ctx, transactionPublicID)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, apperror.NotFound("User transaction not found")
		}
		return nil, apperror.Internal("User transaction lookup failed", err)
	}
	if tr.UserPublicID != userPublicID && tr.ReceiverPublicID != userPublicID {
		return nil, apperror.NotFound("User transaction not found")
	}
	return tr, nil
}
