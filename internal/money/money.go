// Package money handles fixed-point currency amounts.
//
// All ledger arithmetic uses integer minor units (pence, cents, ...)
// scaled by 10^decimals for the group's currency. Conversion to and
// from display form only happens at the API boundary.
package money

import (
	"fmt"
	"math"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency is the lowercase currency code a group is created with.
// The currency is fixed per group at creation.
type Currency string

const (
	GBP Currency = "gbp"
	USD Currency = "usd"
	EUR Currency = "eur"
)

// Info describes a supported currency.
type Info struct {
	Name     string
	Code     string // ISO 4217 code used for formatting
	Decimals int
}

// Settings is the table of supported currencies. Extending support is
// a matter of adding a row here.
var Settings = map[Currency]Info{
	GBP: {Name: "Pound Sterling", Code: gomoney.GBP, Decimals: 2},
	USD: {Name: "US Dollar", Code: gomoney.USD, Decimals: 2},
	EUR: {Name: "Euro", Code: gomoney.EUR, Decimals: 2},
}

// Valid reports whether c is a supported currency.
func (c Currency) Valid() bool {
	_, ok := Settings[c]
	return ok
}

// Decimals returns the number of minor-unit digits for the currency.
// Unknown currencies fall back to 2.
func (c Currency) Decimals() int {
	if info, ok := Settings[c]; ok {
		return info.Decimals
	}
	return 2
}

// ToMinorUnits converts a display amount (e.g. 12.34) to minor units
// (1234). Rounds to the nearest minor unit rather than truncating so
// repeated conversions carry no systematic bias.
func ToMinorUnits(display float64, c Currency) int64 {
	return int64(math.Round(display * math.Pow10(c.Decimals())))
}

// FromMinorUnits converts minor units back to a display amount.
func FromMinorUnits(minor int64, c Currency) float64 {
	return float64(minor) / math.Pow10(c.Decimals())
}

// Parse converts a display amount string (e.g. "12.34") to minor
// units. Parsing goes through decimal arithmetic so values like "0.1"
// convert exactly. A leading currency symbol is tolerated.
func Parse(s string, c Currency) (int64, error) {
	trimmed := strings.TrimSpace(s)
	negative := strings.HasPrefix(trimmed, "-")
	trimmed = strings.TrimPrefix(trimmed, "-")
	if info, ok := Settings[c]; ok {
		if cur := gomoney.GetCurrency(info.Code); cur != nil {
			trimmed = strings.TrimPrefix(trimmed, cur.Grapheme)
		}
	}
	if negative {
		trimmed = "-" + trimmed
	}

	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Shift(int32(c.Decimals())).Round(0).IntPart(), nil
}

// Format renders minor units as a display string with the currency's
// symbol and separators, e.g. -1050 -> "-£10.50". Zero formats with no
// sign.
func Format(minor int64, c Currency) string {
	info, ok := Settings[c]
	if !ok {
		info = Info{Code: gomoney.GBP, Decimals: 2}
	}
	return gomoney.New(minor, info.Code).Display()
}
