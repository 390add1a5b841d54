package inventory

import (
	"github.com/shopspring/decimal"
)

// Money is a monetary amount. All derived amounts are rounded to two decimal places.
type Money = decimal.Decimal

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// Discount is what staff may grant on a quote: a percentage of the gross amount, a fixed amount, or both.
type Discount struct {
	Percent decimal.Decimal
	Fixed   Money
}

// Validate rejects a percentage outside [0, 100] and a negative fixed amount.
func (d Discount) Validate() error {
	if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
		return NewValidationError("discount.percent", "must be between 0 and 100")
	}

	if d.Fixed.IsNegative() {
		return NewValidationError("discount.fixed", "must not be negative")
	}

	return nil
}

// Amounts are the money fields of a reservation.
type Amounts struct {
	Gross           Money
	DiscountPercent decimal.Decimal
	DiscountFixed   Money
	Net             Money
	Paid            Money
}

// Discount returns the discount part of the amounts.
func (a Amounts) Discount() Discount {
	return Discount{Percent: a.DiscountPercent, Fixed: a.DiscountFixed}
}

// Outstanding is what is left to pay, never negative.
func (a Amounts) Outstanding() Money {
	return decimal.Max(a.Net.Sub(a.Paid), decimal.Zero)
}

// LineSubtotal is quantity × unit price × inclusive day count.
func LineSubtotal(quantity int, unitPrice Money, period DateRange) Money {
	return unitPrice.
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(int64(period.DayCount()))).
		Round(moneyPlaces)
}

// CalculateAmounts derives gross and net amount from the lines and the discount.
//
// The percentage discount is applied to the gross amount first, then the fixed discount is subtracted.
// The net amount is never negative. Paid is carried over untouched.
func CalculateAmounts(lines []ReservationLine, discount Discount, paid Money) Amounts {
	gross := decimal.Zero
	for _, line := range lines {
		gross = gross.Add(line.Subtotal())
	}

	percentOff := gross.Mul(discount.Percent).Div(hundred)
	net := gross.Sub(percentOff).Sub(discount.Fixed)
	if net.IsNegative() {
		net = decimal.Zero
	}

	return Amounts{
		Gross:           gross.Round(moneyPlaces),
		DiscountPercent: discount.Percent,
		DiscountFixed:   discount.Fixed.Round(moneyPlaces),
		Net:             net.Round(moneyPlaces),
		Paid:            paid,
	}
}
