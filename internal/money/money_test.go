package money

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/shopledger/internal/model"
)

func TestFormat(t *testing.T) {
	usd := &model.Currency{Symbol: "USD", Sign: "$", Decimals: 2}
	clp := &model.Currency{Symbol: "CLP", Sign: "$", Decimals: 0}

	tests := []struct {
		name   string
		amount string
		cur    *model.Currency
		want   string
	}{
		{"cents", "900", usd, "$900.00 USD"},
		{"thousands", "1000", usd, "$1,000.00 USD"},
		{"millions", "1234567.891", usd, "$1,234,567.89 USD"},
		{"no decimals", "925930", clp, "$925,930 CLP"},
		{"negative", "-15.5", usd, "-$15.50 USD"},
		{"nil currency", "3.25", nil, "3.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Format(decimal.RequireFromString(tt.amount), tt.cur)
			if got != tt.want {
				t.Fatalf("Format(%s) = %q, want %q", tt.amount, got, tt.want)
			}
		})
	}
}

func TestConvert(t *testing.T) {
	// 925.93 CLP за 1 USD, цена 9259.3 CLP -> 10 USD
	got := Convert(decimal.RequireFromString("9259.3"), decimal.RequireFromString("925.93"), 2)
	if !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("Convert = %s, want 10", got)
	}

	same := Convert(decimal.RequireFromString("12.345"), decimal.NewFromInt(1), 2)
	if !same.Equal(decimal.RequireFromString("12.35")) {
		t.Fatalf("Convert with rate 1 = %s, want 12.35", same)
	}
}
