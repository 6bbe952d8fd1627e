package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/apperror"
	"github.com/mmeshcher/shopledger/internal/model"
	"github.com/mmeshcher/shopledger/internal/repository"
)

const defaultUnity = "ea"

// ArticleInput содержит данные для создания товара.
type ArticleInput struct {
	SKU              string
	Title            string
	ShortDescription string
	Unity            string
	QtyStock         int64
	UnitPrice        decimal.Decimal
	IsVirtual        bool
	IsAvailable      bool
}

// ArticlePatch содержит изменяемые поля товара; nil означает «не менять».
type ArticlePatch struct {
	Title            *string
	ShortDescription *string
	Unity            *string
	QtyStock         *int64
	UnitPrice        *decimal.Decimal
	IsVirtual        *bool
	IsAvailable      *bool
}

// CreateArticle создаёт товар. Цена задаётся в валюте по умолчанию на момент создания.
func (s *Service) CreateArticle(ctx context.Context, in ArticleInput) (*model.Article, error) {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Title = strings.TrimSpace(in.Title)

	if in.SKU == "" {
		return nil, apperror.BadRequest("Missing required field: sku")
	}
	if in.Title == "" {
		return nil, apperror.BadRequest("Missing required field: title")
	}
	if in.QtyStock < 0 {
		return nil, apperror.BadRequest("Stock cannot be negative")
	}
	if in.UnitPrice.IsNegative() {
		return nil, apperror.BadRequest("Price cannot be negative")
	}
	if in.Unity == "" {
		in.Unity = defaultUnity
	}

	def, err := s.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	publicID, err := newPublicID()
	if err != nil {
		return nil, apperror.Internal("Article not saved", err)
	}

	a := &model.Article{
		PublicID:         publicID,
		SKU:              in.SKU,
		Title:            in.Title,
		ShortDescription: in.ShortDescription,
		Unity:            in.Unity,
		QtyStock:         in.QtyStock,
		UnitPrice:        in.UnitPrice,
		CurrencyID:       def.ID,
		IsVirtual:        in.IsVirtual,
		IsAvailable:      in.IsAvailable,
	}

	if err := s.repo.CreateArticle(ctx, a); err != nil {
		if errors.Is(err, repository.ErrArticleExists) {
			return nil, apperror.BadRequest("SKU already exists")
		}
		return nil, apperror.Internal("Article not saved", err)
	}

	return a, nil
}

// GetArticle возвращает неудалённый товар.
func (s *Service) GetArticle(ctx context.Context, publicID string) (*model.Article, error) {
	a, err := s.repo.GetArticleByPublicID(ctx, publicID)
	if err != nil {
		return nil, articleLookupError(err)
	}
	return a, nil
}

// ListArticles возвращает каталог без удалённых товаров.
func (s *Service) ListArticles(ctx context.Context) ([]model.Article, error) {
	res, err := s.repo.ListArticles(ctx)
	if err != nil {
		return nil, apperror.Internal("Article lookup failed", err)
	}
	return res, nil
}

// UpdateArticle применяет частичное изменение товара. В базу уходят только
// переданные поля, остальные остаются такими, какими их оставили параллельные заказы.
func (s *Service) UpdateArticle(ctx context.Context, publicID string, p ArticlePatch) (*model.Article, error) {
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, apperror.BadRequest("Missing required field: title")
		}
		p.Title = &title
	}
	if p.QtyStock != nil && *p.QtyStock < 0 {
		return nil, apperror.BadRequest("Stock cannot be negative")
	}
	if p.UnitPrice != nil && p.UnitPrice.IsNegative() {
		return nil, apperror.BadRequest("Price cannot be negative")
	}

	a, err := s.repo.UpdateArticle(ctx, publicID, repository.ArticleUpdate(p))
	if err != nil {
		return nil, articleLookupError(err)
	}
	return a, nil
}

// DeleteArticle помечает товар удалённым.
func (s *Service) DeleteArticle(ctx context.Context, publicID string) error {
	if err := s.repo.SoftDeleteArticle(ctx, publicID); err != nil {
		return articleLookupError(err)
	}
	return nil
}

func articleLookupError(err error) error {
	if errors.Is(err, repository.ErrArticleNotFound) {
		return apperror.NotFound("Article not found")
	}
	return apperror.Internal("Article lookup failed", err)
}
