package orders

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Money is an amount in a single ISO-4217 currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// NewMoney parses amount and currency into Money.
func NewMoney(amount string, code string) (Money, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	unit, err := ParseCurrency(code)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: value, Currency: unit}, nil
}

// MustMoney is like NewMoney but panics on invalid input. Intended for fixtures.
func MustMoney(amount string, code string) Money {
	m, err := NewMoney(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

// ParseCurrency validates an ISO-4217 code and returns it in canonical upper case.
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return "", fmt.Errorf("parse currency %q: %w", code, err)
	}
	return unit.String(), nil
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// String formats the amount using the currency's standard scale, e.g. "USD 1,234.50".
func (m Money) String() string {
	return FormatAmount(m.Amount, m.Currency)
}

var displayPrinter = message.NewPrinter(language.English)

// FormatAmount renders amount with grouping and the currency's standard number of decimals.
func FormatAmount(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}
	value, _ := amount.Round(int32(scale)).Float64()
	formatted := displayPrinter.Sprint(number.Decimal(value, number.Scale(scale)))
	if code == "" {
		return formatted
	}
	return code + " " + formatted
}

func decimalFromInt(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}
