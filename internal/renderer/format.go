package renderer

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney displays amount in currency, rounded to the currency's minor
// unit. Unknown currencies fall back to a plain two-decimal number.
func FormatMoney(amount float64, currency string) string {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return decimal.NewFromFloat(amount).StringFixed(2)
	}
	factor := decimal.NewFromInt(10).Pow(decimal.NewFromInt(int64(cur.Fraction)))
	minor := decimal.NewFromFloat(amount).Mul(factor).Round(0)
	return money.New(minor.IntPart(), currency).Display()
}

// FormatPercent prints a percentage with sign, e.g. +1.25%.
func FormatPercent(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

// FormatQuantity drops trailing zeros: 10, 2.5, 0.125.
func FormatQuantity(v float64) string {
	return decimal.NewFromFloat(v).String()
}
