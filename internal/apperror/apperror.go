// Package apperror описывает классы ошибок, которые видит клиент API.
package apperror

import (
	"errors"
	"net/http"
)

// Kind задаёт класс ошибки.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindConflict
	KindUnavailable
)

// Шаги оформления заказа, на которых может произойти внутренняя ошибка.
const (
	StepResolveParties = "resolve_parties"
	StepPriceCart      = "price_cart"
	StepCheckBalance   = "check_balance"
	StepCommitLedger   = "commit_ledger"
	StepCommitOrder    = "commit_order"
	StepCommitStock    = "commit_stock"
	StepCommit         = "commit"
)

// HTTPStatus возвращает HTTP-код для класса ошибки.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Error описывает ошибку с классом, сообщением для клиента и, при оформлении заказа, шагом.
type Error struct {
	Kind    Kind
	Message string
	// Step заполнен только для внутренних ошибок оформления заказа.
	Step string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Step != "" {
		msg += " (step " + e.Step + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Committed сообщает, могла ли запись уже попасть в базу.
// Для всех шагов, кроме фиксации транзакции, изменения откатываются.
func (e *Error) Committed() bool {
	return e.Step == StepCommit
}

func newError(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

func BadRequest(msg string) error   { return newError(KindBadRequest, msg) }
func NotFound(msg string) error     { return newError(KindNotFound, msg) }
func Unauthorized(msg string) error { return newError(KindUnauthorized, msg) }
func Forbidden(msg string) error    { return newError(KindForbidden, msg) }
func Conflict(msg string) error     { return newError(KindConflict, msg) }

// Unavailable оборачивает ошибку внешнего сервиса.
func Unavailable(msg string, err error) error {
	return &Error{Kind: KindUnavailable, Message: msg, Err: err}
}

// Internal оборачивает непредвиденную ошибку.
func Internal(msg string, err error) error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// SettlementFailed помечает внутреннюю ошибку оформления заказа шагом, на котором она произошла.
func SettlementFailed(step string, err error) error {
	return &Error{Kind: KindInternal, Message: "Order not saved", Step: step, Err: err}
}

// KindOf возвращает класс ошибки; всё, что не *Error, считается внутренней ошибкой.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf возвращает текст ошибки, безопасный для клиента.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return http.StatusText(http.StatusInternalServerError)
}
