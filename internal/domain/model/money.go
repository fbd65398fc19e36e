package model

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyGHS Currency = "GHS"
	CurrencyZAR Currency = "ZAR"
	CurrencyKES Currency = "KES"
	CurrencyUSD Currency = "USD"
)

// minor-unit exponent per supported currency
var currencyExponent = map[Currency]int32{
	CurrencyNGN: 2,
	CurrencyGHS: 2,
	CurrencyZAR: 2,
	CurrencyKES: 2,
	CurrencyUSD: 2,
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := currencyExponent[c]; !ok {
		return "", fmt.Errorf("unsupported currency %q", s)
	}
	return c, nil
}

// Exponent is the number of minor-unit digits; unknown currencies use 2.
func (c Currency) Exponent() int32 {
	if e, ok := currencyExponent[c]; ok {
		return e
	}
	return 2
}

// ToMinorUnits converts a positive major-unit amount to an integer count of
// minor units. It fails rather than round when digits would be lost.
func ToMinorUnits(amount decimal.Decimal, c Currency) (int64, error) {
	if !amount.IsPositive() {
		return 0, fmt.Errorf("amount must be positive, got %s", amount.String())
	}
	scaled := amount.Shift(c.Exponent())
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than %d fractional digits", amount.String(), c.Exponent())
	}
	if scaled.GreaterThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("amount %s out of range", amount.String())
	}
	return scaled.IntPart(), nil
}

// FromMinorUnits converts minor units back to a major-unit decimal.
func FromMinorUnits(minor int64, c Currency) decimal.Decimal {
	return decimal.New(minor, -c.Exponent())
}
