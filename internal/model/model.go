// Package model содержит доменные сущности сервиса магазина.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет зарегистрированного пользователя магазина.
type User struct {
	ID           int64
	PublicID     string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash []byte
	Role         Role
	SecureToken  string
	CreatedAt    time.Time
}

// FullName возвращает имя и фамилию пользователя.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

// Currency описывает валюту и её курс относительно валюты по умолчанию.
type Currency struct {
	ID        int64
	PublicID  string
	Name      string
	Symbol    string
	Rate      decimal.Decimal
	Decimals  int32
	Sign      string
	IsDefault bool
	UpdatedAt time.Time
}

// EntryKind задаёт направление проводки в журнале.
type EntryKind string

const (
	// EntryDebit: пользователь пополняет собственный счёт, деньги у площадки.
	EntryDebit EntryKind = "debit"
	// EntryCredit: деньги переходят от пользователя к другому пользователю.
	EntryCredit EntryKind = "credit"
)

// TransactionStatus описывает статус проводки.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusPaid    TransactionStatus = "paid"
)

// Transaction описывает запись журнала движения средств между плательщиком и получателем.
type Transaction struct {
	ID               int64
	PublicID         string
	UserID           int64
	UserPublicID     string
	ReceiverID       int64
	ReceiverPublicID string
	Amount           decimal.Decimal
	CurrencyID       int64
	Status           TransactionStatus
	Entry            EntryKind
	CreatedAt        time.Time
}

// Article описывает товар каталога.
type Article struct {
	ID               int64
	PublicID         string
	SKU              string
	Title            string
	ShortDescription string
	Unity            string
	QtyStock         int64
	UnitPrice        decimal.Decimal
	CurrencyID       int64
	IsVirtual        bool
	IsAvailable      bool
	IsDeleted        bool
	CreatedAt        time.Time
}

// OrderStatus описывает статус заказа.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, известен ли статус.
func (s OrderStatus) Valid() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// OrderDetail описывает строку заказа с ценой, зафиксированной в момент покупки.
type OrderDetail struct {
	ArticleID       int64
	ArticlePublicID string
	UnitPrice       decimal.Decimal
	Quantity        int64
}

// Order описывает оформленный заказ.
type Order struct {
	ID                  int64
	TrackingNumber      string
	TransactionID       int64
	TransactionPublicID string
	UserID              int64
	ReceiverID          int64
	ReceiverPublicID    string
	CurrencyID          int64
	CurrencyRate        decimal.Decimal
	Total               decimal.Decimal
	Details             []OrderDetail
	Status              OrderStatus
	CreatedAt           time.Time
}

// Balance содержит баланс пользователя в валюте по умолчанию.
type Balance struct {
	Amount    decimal.Decimal
	Formatted string
	Currency  string
}
