package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

const currencyColumns = `id, public_id, name, symbol, rate, decimals, sign, is_default, updated_at`

// CurrencyRate описывает новое значение курса и признака валюты по умолчанию.
type CurrencyRate struct {
	ID        int64
	Rate      decimal.Decimal
	IsDefault bool
}

func scanCurrency(row pgx.Row) (*model.Currency, error) {
	var c model.Currency
	err := row.Scan(&c.ID, &c.PublicID, &c.Name, &c.Symbol, &c.Rate, &c.Decimals, &c.Sign, &c.IsDefault, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCurrencyNotFound
		}
		return nil, fmt.Errorf("scan currency: %w", err)
	}
	return &c, nil
}

func (r *PostgresRepository) queryCurrencies(ctx context.Context, sql string, args ...any) ([]model.Currency, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select currencies: %w", err)
	}
	defer rows.Close()

	var res []model.Currency
	for rows.Next() {
		c, err := scanCurrency(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateCurrency сохраняет новую валюту без признака по умолчанию.
// Назначение валюты по умолчанию выполняется отдельно через UpdateCurrencyRates.
func (r *PostgresRepository) CreateCurrency(ctx context.Context, c *model.Currency) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO currencies (public_id, name, symbol, rate, decimals, sign, is_default)
		 VALUES ($1, $2, $3, $4, $5, $6, FALSE)
		 RETURNING id, updated_at`,
		c.PublicID, c.Name, c.Symbol, c.Rate, c.Decimals, c.Sign,
	).Scan(&c.ID, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrCurrencyExists, c.Symbol)
		}
		return fmt.Errorf("create currency: %w", err)
	}
	c.IsDefault = false
	return nil
}

// GetCurrencyByPublicID возвращает валюту по публичному идентификатору.
func (r *PostgresRepository) GetCurrencyByPublicID(ctx context.Context, publicID string) (*model.Currency, error) {
	return scanCurrency(r.conn(ctx).QueryRow(ctx,
		`SELECT `+currencyColumns+` FROM currencies WHERE public_id = $1`, publicID))
}

// ListCurrencies возвращает все валюты.
func (r *PostgresRepository) ListCurrencies(ctx context.Context) ([]model.Currency, error) {
	return r.queryCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY id`)
}

// ListDefaultCurrencies возвращает все валюты с признаком по умолчанию.
// При соблюдении инварианта в результате ровно одна запись.
func (r *PostgresRepository) ListDefaultCurrencies(ctx context.Context) ([]model.Currency, error) {
	return r.queryCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies WHERE is_default ORDER BY id`)
}

// LockCurrencies возвращает все валюты и блокирует таблицу курсов до конца транзакции.
func (r *PostgresRepository) LockCurrencies(ctx context.Context) ([]model.Currency, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	return r.queryCurrencies(ctx, `SELECT `+currencyColumns+` FROM currencies ORDER BY id FOR UPDATE`)
}

// UpdateCurrencyRates применяет курсы одним пакетом в переданном порядке.
// Снятие признака по умолчанию должно идти раньше его установки.
func (r *PostgresRepository) UpdateCurrencyRates(ctx context.Context, updates []CurrencyRate) error {
	if len(updates) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, u := range updates {
		batch.Queue(
			`UPDATE currencies SET rate = $2, is_default = $3, updated_at = now() WHERE id = $1`,
			u.ID, u.Rate, u.IsDefault,
		)
	}

	br := r.conn(ctx).SendBatch(ctx, batch)
	defer br.Close()

	for _, u := range updates {
		tag, err := br.Exec()
		if err != nil {
			return fmt.Errorf("update currency %d: %w", u.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("update currency %d: %w", u.ID, ErrCurrencyNotFound)
		}
	}

	return br.Close()
}
