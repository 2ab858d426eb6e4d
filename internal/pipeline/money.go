package pipeline

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency codes with a known display symbol.
const (
	CurrencyKES = "KES"
	CurrencyUSD = "USD"
	CurrencyEUR = "EUR"
)

// missingAmount is shown for amounts that are not numbers.
const missingAmount = "—"

var currencySymbols = map[string]string{
	CurrencyKES: "KSh ",
	CurrencyUSD: "$",
	CurrencyEUR: "€",
}

// grouping printer: 1234.5 -> "1,234.50"
var amountPrinter = message.NewPrinter(language.English)

// CurrencySymbol returns the display symbol for code, without spacing.
// Unknown codes are returned as is.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[strings.ToUpper(code)]; ok {
		return strings.TrimSpace(s)
	}
	return code
}

// FormatMoney renders amount with two decimals, thousands separators and
// the currency symbol: "$1,234.50", "KSh 1,234.50", "€1,234.50".
// Negative amounts lead with the sign: "-$5.00".
func FormatMoney(code string, amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return missingAmount
	}

	prefix, ok := currencySymbols[strings.ToUpper(code)]
	if !ok {
		prefix = code + " "
	}

	rounded := math.Round(amount*100) / 100
	sign := ""
	if rounded < 0 {
		sign = "-"
		rounded = -rounded
	}
	return sign + prefix + amountPrinter.Sprintf("%.2f", rounded)
}

// FormatQuantity renders a quantity without trailing zeros: 2, 1.5.
func FormatQuantity(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

// FormatRate renders an adjustment rate the way the totals table labels it:
// 16 -> "16%", 7.5 -> "7.5%".
func FormatRate(rate float64) string {
	return FormatQuantity(rate) + "%"
}
