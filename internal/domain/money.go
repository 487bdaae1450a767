package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

const quantityPrecision = 8

// FormatUSD renders a dollar amount with two decimal places.
func FormatUSD(amount float64) string {
	return decimal.NewFromFloat(amount).StringFixed(2)
}

// FormatQuantity rounds an asset quantity to 8 decimal places and strips
// trailing zeros. Returns "0" for a zero quantity.
func FormatQuantity(quantity float64) string {
	rounded := decimal.NewFromFloat(quantity).Round(quantityPrecision)
	s := rounded.StringFixed(quantityPrecision)
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
