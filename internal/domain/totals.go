package domain

import (
	"fmt"

	"github.com/shopspring/decimal"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// MoneyScale is the number of decimal places amounts are stored with. Inputs
// finer than this are rejected, so derived totals always match the stored
// columns exactly.
const MoneyScale = 4

func checkMoneyScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return apperrors.ValidationFailed(field, fmt.Sprintf("must have at most %d decimal places", MoneyScale))
	}
	return nil
}

// LineSubtotal is unit price times quantity, unrounded.
func LineSubtotal(item OrderItem) decimal.Decimal {
	return item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal sums the line subtotals.
func Subtotal(items []OrderItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(LineSubtotal(item))
	}
	return sum
}

// Total is subtotal + shipping + tax - discount, with null components as zero.
func Total(subtotal decimal.Decimal, shipping, tax, discount decimal.NullDecimal) decimal.Decimal {
	return subtotal.
		Add(orZero(shipping)).
		Add(orZero(tax)).
		Sub(orZero(discount))
}

func orZero(d decimal.NullDecimal) decimal.Decimal {
	if !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}
