package utils

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatAmount renders an amount with dot thousands separators and a comma
// decimal separator, followed by the currency symbol.
// Example: 15000.5, "Kz" -> "15.000,50 Kz"
func FormatAmount(amount float64, symbol string) string {
	fixed := decimal.NewFromFloat(amount).Round(2).StringFixed(2)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")

	parts := strings.SplitN(fixed, ".", 2)
	integerPart, decimalPart := parts[0], parts[1]

	var groups []string
	for i := len(integerPart); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{integerPart[start:i]}, groups...)
	}

	out := strings.Join(groups, ".") + "," + decimalPart
	if negative {
		out = "-" + out
	}
	if symbol != "" {
		out += " " + symbol
	}
	return out
}
