package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

type userResponse struct {
	ID          string     `json:"id"`
	FirstName   string     `json:"firstName"`
	LastName    string     `json:"lastName"`
	Email       string     `json:"email"`
	Role        model.Role `json:"role"`
	SecureToken string     `json:"secureToken,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newUserResponse(u *model.User) userResponse {
	return userResponse{
		ID:          u.PublicID,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		Role:        u.Role,
		SecureToken: u.SecureToken,
		CreatedAt:   u.CreatedAt,
	}
}

type balanceResponse struct {
	Amount    decimal.Decimal `json:"amount"`
	Formatted string          `json:"formatted"`
	Currency  string          `json:"currency"`
}

type currencyResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Symbol    string          `json:"symbol"`
	Rate      decimal.Decimal `json:"rate"`
	Decimals  int32           `json:"decimals"`
	Sign      string          `json:"sign"`
	IsDefault bool            `json:"isDefault"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func newCurrencyResponse(c *model.Currency) currencyResponse {
	return currencyResponse{
		ID:        c.PublicID,
		Name:      c.Name,
		Symbol:    c.Symbol,
		Rate:      c.Rate,
		Decimals:  c.Decimals,
		Sign:      c.Sign,
		IsDefault: c.IsDefault,
		UpdatedAt: c.UpdatedAt,
	}
}

func newCurrencyList(list []model.Currency) []currencyResponse {
	res := make([]currencyResponse, 0, len(list))
	for i := range list {
		res = append(res, newCurrencyResponse(&list[i]))
	}
	return res
}

type transactionResponse struct {
	ID         string                  `json:"id"`
	UserID     string                  `json:"userId"`
	ReceiverID string                  `json:"receiverId"`
	Amount     decimal.Decimal         `json:"amount"`
	Status     model.TransactionStatus `json:"status"`
	Entry      model.EntryKind         `json:"entry"`
	CreatedAt  time.Time               `json:"createdAt"`
}

func newTransactionResponse(t *model.Transaction) transactionResponse {
	return transactionResponse{
		ID:         t.PublicID,
		UserID:     t.UserPublicID,
		ReceiverID: t.ReceiverPublicID,
		Amount:     t.Amount,
		Status:     t.Status,
		Entry:      t.Entry,
		CreatedAt:  t.CreatedAt,
	}
}

func newTransactionList(list []model.Transaction) []transactionResponse {
	res := make([]transactionResponse, 0, len(list))
	for i := range list {
		res = append(res, newTransactionResponse(&list[i]))
	}
	return res
}

type articleResponse struct {
	ID               string          `json:"id"`
	SKU              string          `json:"sku"`
	Title            string          `json:"title"`
	ShortDescription string          `json:"shortDescription"`
	Unity            string          `json:"unity"`
	QtyStock         int64           `json:"qtyStock"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	IsVirtual        bool            `json:"isVirtual"`
	IsAvailable      bool            `json:"isAvailable"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func newArticleResponse(a *model.Article) articleResponse {
	return articleResponse{
		ID:               a.PublicID,
		SKU:              a.SKU,
		Title:            a.Title,
		ShortDescription: a.ShortDescription,
		Unity:            a.Unity,
		QtyStock:         a.QtyStock,
		UnitPrice:        a.UnitPrice,
		IsVirtual:        a.IsVirtual,
		IsAvailable:      a.IsAvailable,
		CreatedAt:        a.CreatedAt,
	}
}

type orderDetailResponse struct {
	ArticleID string          `json:"articleId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int64           `json:"quantity"`
}

type orderResponse struct {
	TrackingNumber    string                `json:"trackingNumber"`
	UserTransactionID string                `json:"userTransactionId"`
	ReceiverID        string                `json:"receiverId"`
	CurrencyRate      decimal.Decimal       `json:"currencyRate"`
	Total             decimal.Decimal       `json:"total"`
	Status            model.OrderStatus     `json:"status"`
	Details           []orderDetailResponse `json:"details"`
	CreatedAt         time.Time             `json:"createdAt"`
}

func newOrderResponse(o *model.Order) orderResponse {
	details := make([]orderDetailResponse, 0, len(o.Details))
	for _, d := range o.Details {
		details = append(details, orderDetailResponse{
			ArticleID: d.ArticlePublicID,
			UnitPrice: d.UnitPrice,
			Quantity:  d.Quantity,
		})
	}
	return orderResponse{
		TrackingNumber:    o.TrackingNumber,
		UserTransactionID: o.TransactionPublicID,
		ReceiverID:        o.ReceiverPublicID,
		CurrencyRate:      o.CurrencyRate,
		Total:             o.Total,
		Status:            o.Status,
		Details:           details,
		CreatedAt:         o.CreatedAt,
	}
}
