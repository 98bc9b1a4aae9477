/*
Package generic provides the domain-agnostic money, time and ledger primitives
the tip engine is built on.

PURPOSE:
  This package knows nothing about shifts, bookings or tips. It supplies the
  arithmetic and bookkeeping that the allocation engine needs to be exact and
  auditable: decimal currency amounts, time intervals, pay periods, and an
  accumulating ledger that can prove distributed + overpaid == processed.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A signed currency value (e.g., $10.00, -$2.50)
  - EmployeeID / TransactionID / RunID: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never float64, for money
  2. Type Safety: Strong typing for IDs prevents mixing employee/transaction IDs
  3. Immutability: Amount operations return new values

USAGE:
  tip := generic.MustAmount("10.00", generic.USD)
  half := tip.Div(decimal.NewFromInt(2))

SEE ALSO:
  - time.go: Interval arithmetic (overlap, containment, distance)
  - period.go: Pay period boundaries
  - ledger.go: Reconciliation ledger
*/
package generic

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Signed currency value
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

type Currency string

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	CAD Currency = "CAD"
)

func NewAmount(value float64, currency Currency) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewAmountFromDecimal(value decimal.Decimal, currency Currency) Amount {
	return Amount{Value: value, Currency: currency}
}

// ParseAmount parses a decimal string such as "12.50" or "-3".
func ParseAmount(s string, currency Currency) (Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}, fmt.Errorf("%w: amount %q: %v", ErrInvalidInput, s, err)
	}
	return Amount{Value: d, Currency: currency}, nil
}

// MustAmount is ParseAmount for constants and tests. Unparseable input yields zero.
func MustAmount(s string, currency Currency) Amount {
	a, err := ParseAmount(s, currency)
	if err != nil {
		return Amount{Value: decimal.Zero, Currency: currency}
	}
	return a
}

func Zero(currency Currency) Amount { return Amount{Value: decimal.Zero, Currency: currency} }

func (a Amount) Zero() Amount                  { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount           { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) Sub(b Amount) Amount           { return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency} }
func (a Amount) Mul(s decimal.Decimal) Amount  { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) Div(s decimal.Decimal) Amount  { return Amount{Value: a.Value.Div(s), Currency: a.Currency} }
func (a Amount) Neg() Amount                   { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) Abs() Amount                   { return Amount{Value: a.Value.Abs(), Currency: a.Currency} }
func (a Amount) IsNegative() bool              { return a.Value.IsNegative() }
func (a Amount) IsZero() bool                  { return a.Value.IsZero() }
func (a Amount) IsPositive() bool              { return a.Value.IsPositive() }
func (a Amount) Equal(b Amount) bool           { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool     { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool        { return a.Value.LessThan(b.Value) }

// Cents rounds half away from zero to two places, for display and payroll export.
func (a Amount) Cents() Amount {
	return Amount{Value: a.Value.Round(2), Currency: a.Currency}
}

func (a Amount) String() string {
	if a.Currency == "" {
		return a.Value.StringFixed(2)
	}
	return a.Value.StringFixed(2) + " " + string(a.Currency)
}

// Sum adds amounts, returning zero in the given currency for an empty list.
func Sum(currency Currency, amounts ...Amount) Amount {
	total := Zero(currency)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// EmployeeID identifies one person across all of their shifts. It is never a
// display name; see tips.Roster for how IDs are assigned.
type EmployeeID string

// TransactionID is the point-of-sale transaction key a tip belongs to.
type TransactionID string

// RunID identifies one distribution run.
type RunID string
