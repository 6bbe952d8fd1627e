// Package money содержит вспомогательные функции для денежных сумм.
package money

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

// Format форматирует сумму в знаке и точности валюты, например "$1,000.00 USD".
func Format(amount decimal.Decimal, c *model.Currency) string {
	if c == nil {
		return amount.String()
	}

	fixed := amount.Abs().StringFixed(c.Decimals)

	intPart, fracPart := fixed, ""
	for i := 0; i < len(fixed); i++ {
		if fixed[i] == '.' {
			intPart, fracPart = fixed[:i], fixed[i:]
			break
		}
	}

	res := groupThousands(intPart) + fracPart
	if amount.IsNegative() {
		res = "-" + c.Sign + res
	} else {
		res = c.Sign + res
	}

	return res + " " + c.Symbol
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}

	out := make([]byte, 0, len(digits)+len(digits)/3)
	head := len(digits) % 3
	if head > 0 {
		out = append(out, digits[:head]...)
	}
	for i := head; i < len(digits); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, digits[i:i+3]...)
	}
	return string(out)
}

// Convert переводит цену из валюты с курсом rate в валюту по умолчанию
// и округляет до decimals знаков.
func Convert(price, rate decimal.Decimal, decimals int32) decimal.Decimal {
	if rate.IsZero() {
		return price.Round(decimals)
	}
	return price.Div(rate).Round(decimals)
}
