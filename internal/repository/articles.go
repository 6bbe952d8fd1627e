package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

const articleColumns = `id, public_id, sku, title, short_description, unity, qty_stock,
	unit_price, currency_id, is_virtual, is_available, is_deleted, created_at`

func scanArticle(row pgx.Row) (*model.Article, error) {
	var a model.Article
	err := row.Scan(&a.ID, &a.PublicID, &a.SKU, &a.Title, &a.ShortDescription, &a.Unity, &a.QtyStock,
		&a.UnitPrice, &a.CurrencyID, &a.IsVirtual, &a.IsAvailable, &a.IsDeleted, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrArticleNotFound
		}
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return &a, nil
}

func (r *PostgresRepository) queryArticles(ctx context.Context, sql string, args ...any) ([]model.Article, error) {
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	defer rows.Close()

	var res []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// CreateArticle сохраняет новый товар.
func (r *PostgresRepository) CreateArticle(ctx context.Context, a *model.Article) error {
	err := r.conn(ctx).QueryRow(ctx,
		`INSERT INTO articles (public_id, sku, title, short_description, unity, qty_stock,
		                       unit_price, currency_id, is_virtual, is_available)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		a.PublicID, a.SKU, a.Title, a.ShortDescription, a.Unity, a.QtyStock,
		a.UnitPrice, a.CurrencyID, a.IsVirtual, a.IsAvailable,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", ErrArticleExists, a.SKU)
		}
		return fmt.Errorf("create article: %w", err)
	}
	return nil
}

// GetArticleByPublicID возвращает неудалённый товар по публичному идентификатору.
func (r *PostgresRepository) GetArticleByPublicID(ctx context.Context, publicID string) (*model.Article, error) {
	return scanArticle(r.conn(ctx).QueryRow(ctx,
		`SELECT `+articleColumns+` FROM articles WHERE public_id = $1 AND NOT is_deleted`, publicID))
}

// ListArticles возвращает все неудалённые товары.
func (r *PostgresRepository) ListArticles(ctx context.Context) ([]model.Article, error) {
	return r.queryArticles(ctx, `SELECT `+articleColumns+` FROM articles WHERE NOT is_deleted ORDER BY id`)
}

// LockArticlesByPublicIDs возвращает найденные неудалённые товары и блокирует их строки.
// Отсутствующие идентификаторы просто не попадают в результат.
func (r *PostgresRepository) LockArticlesByPublicIDs(ctx context.Context, publicIDs []string) ([]model.Article, error) {
	if err := requireTx(ctx); err != nil {
		return nil, err
	}
	return r.queryArticles(ctx,
		`SELECT `+articleColumns+` FROM articles
		 WHERE public_id = ANY($1) AND NOT is_deleted
		 ORDER BY id FOR UPDATE`, publicIDs)
}

// ArticleUpdate содержит изменяемые поля товара; nil означает «не менять».
type ArticleUpdate struct {
	Title            *string
	ShortDescription *string
	Unity            *string
	QtyStock         *int64
	UnitPrice        *decimal.Decimal
	IsVirtual        *bool
	IsAvailable      *bool
}

// UpdateArticle меняет только переданные поля товара одним UPDATE и возвращает товар
// после изменения. Остаток, не указанный в u, не перезаписывается, поэтому
// параллельное списание со склада не теряется.
func (r *PostgresRepository) UpdateArticle(ctx context.Context, publicID string, u ArticleUpdate) (*model.Article, error) {
	return scanArticle(r.conn(ctx).QueryRow(ctx,
		`UPDATE articles
		 SET title = COALESCE($2, title),
		     short_description = COALESCE($3, short_description),
		     unity = COALESCE($4, unity),
		     qty_stock = COALESCE($5, qty_stock),
		     unit_price = COALESCE($6, unit_price),
		     is_virtual = COALESCE($7, is_virtual),
		     is_available = COALESCE($8, is_available)
		 WHERE public_id = $1 AND NOT is_deleted
		 RETURNING `+articleColumns,
		publicID, u.Title, u.ShortDescription, u.Unity, u.QtyStock,
		u.UnitPrice, u.IsVirtual, u.IsAvailable,
	))
}

// SoftDeleteArticle помечает товар удалённым. Строки заказов продолжают на него ссылаться.
func (r *PostgresRepository) SoftDeleteArticle(ctx context.Context, publicID string) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE articles SET is_deleted = TRUE, is_available = FALSE
		 WHERE public_id = $1 AND NOT is_deleted`, publicID)
	if err != nil {
		return fmt.Errorf("delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrArticleNotFound
	}
	return nil
}

// DecrementStock списывает qty единиц товара со склада.
func (r *PostgresRepository) DecrementStock(ctx context.Context, articleID, qty int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE articles SET qty_stock = qty_stock - $2
		 WHERE id = $1 AND qty_stock >= $2`, articleID, qty)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: article %d", ErrInsufficientStock, articleID)
	}
	return nil
}
