package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction is the financial snapshot taken when a booking completes.
// It is written once and never updated.
type Transaction struct {
	ID               uuid.UUID       `json:"id"`
	BookingID        uuid.UUID       `json:"booking_id"`
	Amount           decimal.Decimal `json:"amount"`
	Downpayment      decimal.Decimal `json:"downpayment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	Expenses         []ExpenseItem   `json:"expenses"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	Profit           decimal.Decimal `json:"profit"`
	CompletedAt      time.Time       `json:"completed_at"`
}

type TransactionFilter struct {
	From *time.Time
	To   *time.Time
}

type MonthlyRollup struct {
	Month        string          `json:"month"`
	Income       decimal.Decimal `json:"income"`
	Expenses     decimal.Decimal `json:"expenses"`
	Profit       decimal.Decimal `json:"profit"`
	Transactions []*Transaction  `json:"transactions"`
}
