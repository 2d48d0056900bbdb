package entity

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type BudgetStatus string

const (
	BudgetStatusNone    BudgetStatus = "no-budget"
	BudgetStatusOnTrack BudgetStatus = "on-track"
	BudgetStatusAtRisk  BudgetStatus = "at-risk"
	BudgetStatusOver    BudgetStatus = "over-budget"
)

// BudgetHealth compares a booking's expenses with the budget a manager set.
type BudgetHealth struct {
	Status       BudgetStatus        `json:"status"`
	Budget       decimal.NullDecimal `json:"budget"`
	Spent        decimal.Decimal     `json:"spent"`
	Remaining    decimal.Decimal     `json:"remaining"`     // negative once over budget
	UsagePercent decimal.Decimal     `json:"usage_percent"` // 0 when there is no budget or it is zero
}

// NeedsAttention is true when a manager should look at the booking's spending.
func (h BudgetHealth) NeedsAttention() bool {
	switch h.Status {
	case BudgetStatusAtRisk, BudgetStatusOver:
		return true
	case BudgetStatusNone, BudgetStatusOnTrack:
		return false
	default:
		return false
	}
}

func (h BudgetHealth) String() string {
	if !h.Budget.Valid {
		return fmt.Sprintf("Spent: %s, no budget", h.Spent.StringFixed(2))
	}
	return fmt.Sprintf("Spent: %s of %s (%s%%), %s",
		h.Spent.StringFixed(2), h.Budget.Decimal.StringFixed(2), h.UsagePercent.StringFixed(1), h.Status)
}

// BookingSummary is a count of bookings per status, used by the settlement sweep.
type BookingSummary struct {
	ByStatus         map[BookingStatus]int `json:"by_status"`
	AwaitingSettle   int                   `json:"awaiting_settlement"`
	OutstandingTotal decimal.Decimal       `json:"outstanding_total"`
}
