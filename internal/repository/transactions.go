package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shopledger/internal/model"
)

const transactionSelect = `
	SELECT t.id, t.public_id, t.user_id, u.public_id, t.receiver_id, rc.public_id,
	       t.amount, t.currency_id, t.status, t.entry, t.created_at
	FROM user_transactions t
	JOIN users u ON u.id = t.user_id
	JOIN users rc ON rc.id = t.receiver_id`

func scanTransaction(row pgx.Row) (*model.Transaction, error) {
	var (
		t      model.Transaction
		status string
		entry  string
	)
	err := row.Scan(&t.ID, &t.PublicID, &t.UserID, &t.UserPublicID, &t.ReceiverID, &t.ReceiverPublicID,
		&t.Amount, &t.CurrencyID, &status, &entry, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan user transaction: %w", err)
	}
	t.Status = model.TransactionStatus(status)
	t.Entry = model.EntryKind(entry)
	return &t, nil
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, sql string, args ...any) ([]model.Transaction, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select user transactions: %w", err)
	}
	defer rows.Close()

	var res []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateTransaction добавляет проводку в журнал и заполняет её ID и время создания.
func (r *PostgresRepository) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO user_transactions (public_id, user_id, receiver_id, amount, currency_id, status, entry)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		t.PublicID, t.UserID, t.ReceiverID, t.Amount, t.CurrencyID, string(t.Status), string(t.Entry),
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("create user transaction: %w", err)
	}
	return nil
}

// ListTransactionsByUser возвращает проводки, в которых пользователь выступает плательщиком.
func (r *PostgresRepository) ListTransactionsByUser(ctx context.Context, userID int64) ([]model.Transaction, error) {
	return r.queryTransactions(ctx, transactionSelect+` WHERE t.user_id = $1 ORDER BY t.id`, userID)
}

// ListTransactionsByReceiver возвращает проводки, в которых пользователь выступает получателем.
func (r *PostgresRepository) ListTransactionsByReceiver(ctx context.Context, receiverID int64) ([]model.Transaction, error) {
	return r.queryTransactions(ctx, transactionSelect+` WHERE t.receiver_id = $1 ORDER BY t.id`, receiverID)
}

// GetTransactionByPublicID возвращает проводку по публичному идентификатору.
func (r *PostgresRepository) GetTransactionByPublicID(ctx context.Context, publicID string) (*model.Transaction, error) {
	return scanTransaction(r.conn(ctx).QueryRow(ctx, transactionSelect+` WHERE t.public_id = $1`, publicID))
}

// LockTransaction возвращает проводку и блокирует её строку до конца транзакции.
func (r *PostgresRepository) LockTransaction(ctx context.Context, publicID string) (*model.Transaction, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	return scanTransaction(r.conn(ctx).QueryRow(ctx,
		transactionSelect+` WHERE t.public_id = $1 FOR UPDATE OF t`, publicID))
}

// UpdateTransactionStatus меняет статус проводки.
func (r *PostgresRepository) UpdateTransactionStatus(ctx context.Context, id int64, status model.TransactionStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE user_transactions SET status = $2, updated_at = now() WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return fmt.Errorf("update user transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}
