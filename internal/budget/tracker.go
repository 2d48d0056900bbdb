// Package budget classifies a booking's spending against its budget.
package budget

import (
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"

	"github.com/shopspring/decimal"
)

// AtRiskRatio is the share of the budget above which spending is flagged.
var AtRiskRatio = decimal.RequireFromString("0.8")

func Classify(budget decimal.NullDecimal, spent decimal.Decimal) entity.BudgetHealth {
	h := entity.BudgetHealth{
		Status:       entity.BudgetStatusNone,
		Budget:       budget,
		Spent:        spent,
		UsagePercent: decimal.Zero,
		Remaining:    decimal.Zero,
	}
	if !budget.Valid {
		return h
	}

	limit := budget.Decimal
	h.Remaining = limit.Sub(spent)
	h.UsagePercent = money.Percent(spent, limit)

	switch {
	case spent.LessThanOrEqual(limit.Mul(AtRiskRatio)):
		h.Status = entity.BudgetStatusOnTrack
	case spent.LessThanOrEqual(limit):
		h.Status = entity.BudgetStatusAtRisk
	default:
		h.Status = entity.BudgetStatusOver
	}
	return h
}

func ForBooking(b *entity.Booking) entity.BudgetHealth {
	return Classify(b.Budget, b.Expenses.Total())
}
