package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EntryType string

const (
	EntryTypeIncome  EntryType = "income"
	EntryTypeExpense EntryType = "expense"
)

func (t EntryType) Valid() bool {
	switch t {
	case EntryTypeIncome, EntryTypeExpense:
		return true
	default:
		return false
	}
}

// CashflowEntry is a manually recorded income or expense row.
type CashflowEntry struct {
	ID          uuid.UUID       `json:"id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	OwnerID     string          `json:"owner_id"`
	CreatedAt   time.Time       `json:"created_at"`
}

type CashflowFilter struct {
	Type    EntryType
	OwnerID string
	From    *Date
	To      *Date
}

type LedgerSource string

const (
	LedgerSourceBooking LedgerSource = "booking"
	LedgerSourceManual  LedgerSource = "manual"
)

const (
	CategoryBookingIncome  = "booking_income"
	CategoryBookingExpense = "booking_expense"
)

// LedgerEntry is one row of the merged cashflow ledger.
type LedgerEntry struct {
	ID          string          `json:"id"`
	Type        EntryType       `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
	Notes       string          `json:"notes,omitempty"`
	Source      LedgerSource    `json:"source"`
	BookingID   *uuid.UUID      `json:"booking_id,omitempty"`
}

// LedgerFilter is applied to synthetic and manual rows alike. Bounds are inclusive.
type LedgerFilter struct {
	Type EntryType
	From *Date
	To   *Date
}

type LedgerTotals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`
}

type PeriodLedger struct {
	Month   string        `json:"month"`
	Entries []LedgerEntry `json:"entries"`
	Totals  LedgerTotals  `json:"totals"`
}
