package pipeline

import (
	"math"
	"testing"
)

func TestFormatMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code   string
		amount float64
		want   string
	}{
		{code: CurrencyUSD, amount: 1234.5, want: "$1,234.50"},
		{code: CurrencyKES, amount: 1234.5, want: "KSh 1,234.50"},
		{code: CurrencyEUR, amount: 1234.5, want: "€1,234.50"},
		{code: "usd", amount: 0, want: "$0.00"},
		{code: CurrencyKES, amount: 1000000, want: "KSh 1,000,000.00"},
		{code: CurrencyUSD, amount: 19.999, want: "$20.00"},
		{code: CurrencyUSD, amount: -5, want: "-$5.00"},
		{code: "GBP", amount: 10, want: "GBP 10.00"},
		{code: CurrencyUSD, amount: math.NaN(), want: "—"},
	}

	for _, tt := range tests {
		if got := FormatMoney(tt.code, tt.amount); got != tt.want {
			t.Errorf("FormatMoney(%q, %v) = %q, want %q", tt.code, tt.amount, got, tt.want)
		}
	}
}

func TestCurrencySymbol(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		CurrencyKES: "KSh",
		CurrencyUSD: "$",
		"eur":       "€",
		"CHF":       "CHF",
	}
	for code, want := range tests {
		if got := CurrencySymbol(code); got != want {
			t.Errorf("CurrencySymbol(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestFormatQuantityAndRate(t *testing.T) {
	t.Parallel()

	if got := FormatQuantity(2); got != "2" {
		t.Errorf("FormatQuantity(2) = %q", got)
	}
	if got := FormatQuantity(1.5); got != "1.5" {
		t.Errorf("FormatQuantity(1.5) = %q", got)
	}
	if got := FormatRate(16); got != "16%" {
		t.Errorf("FormatRate(16) = %q", got)
	}
}
