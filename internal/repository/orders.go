package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mmeshcher/shopledger/internal/model"
)

const orderSelect = `
	SELECT o.id, o.tracking_number, o.user_transaction_id, t.public_id, o.user_id,
	       o.receiver_id, rc.public_id, o.currency_id, o.currency_rate, o.total, o.status, o.created_at
	FROM orders o
	JOIN user_transactions t ON t.id = o.user_transaction_id
	JOIN users rc ON rc.id = o.receiver_id`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var (
		o      model.Order
		status string
	)
	err := row.Scan(&o.ID, &o.TrackingNumber, &o.TransactionID, &o.TransactionPublicID, &o.UserID,
		&o.ReceiverID, &o.ReceiverPublicID, &o.CurrencyID, &o.CurrencyRate, &o.Total, &status, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}
	o.Status = model.OrderStatus(status)
	return &o, nil
}

// CreateOrder сохраняет заказ вместе со строками. Вызывается внутри InTx.
func (r *PostgresRepository) CreateOrder(ctx context.Context, o *model.Order) error {
	q := r.conn(ctx)

	err := q.QueryRow(ctx,
		`INSERT INTO orders (tracking_number, user_transaction_id, user_id, receiver_id,
		                     currency_id, currency_rate, total, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, created_at`,
		o.TrackingNumber, o.TransactionID, o.UserID, o.ReceiverID,
		o.CurrencyID, o.CurrencyRate, o.Total, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	if len(o.Details) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i, d := range o.Details {
		batch.Queue(
			`INSERT INTO order_details (order_id, line_no, article_id, unit_price, quantity)
			 VALUES ($1, $2, $3, $4, $5)`,
			o.ID, i+1, d.ArticleID, d.UnitPrice, d.Quantity,
		)
	}

	br := q.SendBatch(ctx, batch)
	defer br.Close()

	for range o.Details {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("create order detail: %w", err)
		}
	}

	return br.Close()
}

func (r *PostgresRepository) loadDetails(ctx context.Context, o *model.Order) error {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT d.article_id, a.public_id, d.unit_price, d.quantity
		 FROM order_details d
		 JOIN articles a ON a.id = d.article_id
		 WHERE d.order_id = $1
		 ORDER BY d.line_no`, o.ID)
	if err != nil {
		return fmt.Errorf("select order details: %w", err)
	}
	defer rows.Close()

	o.Details = o.Details[:0]
	for rows.Next() {
		var d model.OrderDetail
		if err := rows.Scan(&d.ArticleID, &d.ArticlePublicID, &d.UnitPrice, &d.Quantity); err != nil {
			return fmt.Errorf("scan order detail: %w", err)
		}
		o.Details = append(o.Details, d)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// GetOrderByTrackingNumber возвращает заказ со строками.
func (r *PostgresRepository) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*model.Order, error) {
	o, err := scanOrder(r.conn(ctx).QueryRow(ctx, orderSelect+` WHERE o.tracking_number = $1`, trackingNumber))
	if err != nil {
		return nil, err
	}
	if err := r.loadDetails(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrdersByUser возвращает заказы покупателя, новые первыми.
func (r *PostgresRepository) ListOrdersByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	rows, err := r.conn(ctx).Query(ctx,
		orderSelect+` WHERE o.user_id = $1 ORDER BY o.created_at DESC, o.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}

	var res []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		res = append(res, *o)
	}
	rows.Close()

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	for i := range res {
		if err := r.loadDetails(ctx, &res[i]); err != nil {
			return nil, err
		}
	}

	return res, nil
}

// UpdateOrderStatus переводит заказ из статуса from в статус to. Если заказ уже
// не в статусе from, возвращает ErrOrderStatusChanged.
func (r *PostgresRepository) UpdateOrderStatus(ctx context.Context, id int64, from, to model.OrderStatus) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE orders SET status = $3 WHERE id = $1 AND status = $2`, id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: order %d", ErrOrderStatusChanged, id)
	}
	return nil
}
