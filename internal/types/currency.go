package types

import (
	"strings"

	"github.com/shopspring/decimal"
)

// currencyPrecision maps ISO currency codes to their number of minor
// unit digits. Unlisted currencies default to 2.
var currencyPrecision = map[string]int32{
	"usd": 2,
	"eur": 2,
	"gbp": 2,
	"cad": 2,
	"aud": 2,
	"inr": 2,
	"jpy": 0,
	"krw": 0,
	"vnd": 0,
	"bhd": 3,
	"kwd": 3,
}

// GetCurrencyPrecision returns the minor-unit digits for a currency
func GetCurrencyPrecision(currency string) int32 {
	if p, ok := currencyPrecision[strings.ToLower(currency)]; ok {
		return p
	}
	return 2
}

// MajorToMinor converts a major-unit amount (12.50 USD) to the
// smallest-currency-unit integer Stripe expects (1250).
func MajorToMinor(amount decimal.Decimal, currency string) int64 {
	return amount.Shift(GetCurrencyPrecision(currency)).IntPart()
}

// MinorToMajor converts a smallest-currency-unit integer back to a
// major-unit decimal.
func MinorToMajor(amount int64, currency string) decimal.Decimal {
	return decimal.NewFromInt(amount).Shift(-GetCurrencyPrecision(currency))
}

// IsSameCurrency compares currency codes case-insensitively
func IsSameCurrency(a, b string) bool {
	return strings.EqualFold(a, b)
}
