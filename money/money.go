/*
Package money holds the integer minor-unit representation used for every
monetary value in the ledger.

Amounts are stored and summed as int64 cents so balances never drift.
Decimal conversion only happens at the edges: parsing user input, rendering
for display, and computing percentages.
*/
package money

import (
	"fmt"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an account carries no currency code.
const DefaultCurrency = "USD"

// Cents is an amount in minor currency units.
type Cents int64

var hundred = decimal.NewFromInt(100)

// FromDisplay converts a display amount (12.34) to cents, rounding half away from zero.
func FromDisplay(d decimal.Decimal) Cents {
	return Cents(d.Mul(hundred).Round(0).IntPart())
}

// ParseDisplay parses a display string such as "12.34" into cents.
func ParseDisplay(s string) (Cents, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDisplay(d), nil
}

// Decimal returns the display value of c (1234 -> 12.34).
func (c Cents) Decimal() decimal.Decimal { return decimal.New(int64(c), -2) }

// String renders c with two decimals and no currency symbol.
func (c Cents) String() string { return c.Decimal().StringFixed(2) }

func (c Cents) Neg() Cents { return -c }

func (c Cents) Abs() Cents {
	if c < 0 {
		return -c
	}
	return c
}

// Format renders c for display in the given ISO currency ("$12.34", "-€5.00").
// Unknown codes fall back to the plain decimal with the code appended.
func Format(c Cents, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	if gomoney.GetCurrency(currency) == nil {
		return c.String() + " " + currency
	}
	return gomoney.New(int64(c), currency).Display()
}

// Percentage returns part/total as a percentage rounded to two decimals.
// A zero total yields 0.
func Percentage(part, total Cents) float64 {
	if total == 0 {
		return 0
	}
	p := decimal.NewFromInt(int64(part)).
		Div(decimal.NewFromInt(int64(total))).
		Mul(decimal.NewFromInt(10000)).
		Round(0).
		Div(hundred)
	return p.InexactFloat64()
}

// Sum adds amounts.
func Sum(amounts ...Cents) Cents {
	var total Cents
	for _, a := range amounts {
		total += a
	}
	return total
}
