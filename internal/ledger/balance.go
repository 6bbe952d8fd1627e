// Package ledger содержит расчёт баланса по журналу проводок.
package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

// Fold сворачивает проводки пользователя в баланс: дебет увеличивает его,
// кредит уменьшает, прочие записи игнорируются. Статус проводки не учитывается,
// поэтому ожидающий подтверждения перевод уже резервирует средства.
func Fold(entries []model.Transaction) decimal.Decimal {
	acc := decimal.Zero
	for _, e := range entries {
		switch e.Entry {
		case model.EntryDebit:
			acc = acc.Add(e.Amount)
		case model.EntryCredit:
			acc = acc.Sub(e.Amount)
		}
	}
	return acc
}
