package pricing

import (
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"

	"github.com/shopspring/decimal"
)

// TotalDue is what must be collected by completion: the agreed price plus
// every reschedule fee charged so far.
func TotalDue(b *entity.Booking) decimal.Decimal {
	return b.AgreedPrice().Add(b.RescheduleFee)
}

type Settlement struct {
	TotalDue     decimal.Decimal
	Downpayment  decimal.Decimal
	FinalPayment decimal.Decimal
	AmountPaid   decimal.Decimal
}

// Settle reconciles the downpayment and the final payment against TotalDue.
// finalPayment may be unset when the downpayment already covers the booking.
func Settle(b *entity.Booking, finalPayment decimal.NullDecimal) (Settlement, error) {
	due := TotalDue(b)
	dp := b.Downpayment

	if finalPayment.Valid && finalPayment.Decimal.IsNegative() {
		return Settlement{}, entity.NewValidationError("final_payment", "must not be negative")
	}

	mismatch := func(fp decimal.Decimal, reason string) error {
		return &entity.PaymentMismatchError{
			Expected:     due,
			Actual:       dp.Add(fp),
			Downpayment:  dp,
			FinalPayment: fp,
			Reason:       reason,
		}
	}

	if dp.GreaterThan(due) {
		return Settlement{}, mismatch(decimal.Zero, "downpayment exceeds total due")
	}
	if !finalPayment.Valid && dp.LessThan(due) {
		return Settlement{}, mismatch(decimal.Zero, "final payment required")
	}

	fp := money.Or(finalPayment, decimal.Zero)
	paid := dp.Add(fp)
	if !money.WithinTolerance(paid, due) {
		reason := "payment short of total due"
		if paid.GreaterThan(due) {
			reason = "payment exceeds total due"
		}
		return Settlement{}, mismatch(fp, reason)
	}

	return Settlement{
		TotalDue:     due,
		Downpayment:  dp,
		FinalPayment: fp,
		AmountPaid:   paid,
	}, nil
}

// Profit is collected money minus expenses. Discounts are already part of the
// agreed price and are not subtracted again.
func Profit(collected, expenses decimal.Decimal) decimal.Decimal {
	return collected.Sub(expenses)
}
