package cashflow

import (
	"fmt"
	"slices"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"

	"github.com/shopspring/decimal"
)

// BookingEntries derives the synthetic ledger rows of one booking: an income
// row for the discounted price and, when anything was spent, an expense row.
// Only confirmed and completed bookings produce rows.
func BookingEntries(b *entity.Booking) []entity.LedgerEntry {
	if !b.Status.Counted() {
		return nil
	}

	id := b.ID
	label := b.EventType
	if label == "" {
		label = string(b.ServiceType)
	}

	rows := []entity.LedgerEntry{{
		ID:          fmt.Sprintf("booking-%s-income", b.ID),
		Type:        entity.EntryTypeIncome,
		Amount:      money.ClampZero(b.TotalPrice.Sub(b.Discount)),
		Description: fmt.Sprintf("Booking income: %s", label),
		Category:    entity.CategoryBookingIncome,
		Date:        b.EventDate,
		Source:      entity.LedgerSourceBooking,
		BookingID:   &id,
	}}

	if spent := b.Expenses.Total(); spent.IsPositive() {
		rows = append(rows, entity.LedgerEntry{
			ID:          fmt.Sprintf("booking-%s-expense", b.ID),
			Type:        entity.EntryTypeExpense,
			Amount:      spent,
			Description: fmt.Sprintf("Booking expenses: %s", label),
			Category:    entity.CategoryBookingExpense,
			Date:        b.EventDate,
			Source:      entity.LedgerSourceBooking,
			BookingID:   &id,
		})
	}
	return rows
}

func ManualEntry(e *entity.CashflowEntry) entity.LedgerEntry {
	return entity.LedgerEntry{
		ID:          e.ID.String(),
		Type:        e.Type,
		Amount:      e.Amount,
		Description: e.Description,
		Category:    e.Category,
		Date:        e.Date,
		Notes:       e.Notes,
		Source:      entity.LedgerSourceManual,
	}
}

// BuildLedger merges booking-derived and manual rows dated within month,
// newest first. Rows on the same day keep emission order: bookings in the
// order given, then manual entries.
func BuildLedger(month Month, bookings []*entity.Booking, manual []*entity.CashflowEntry) []entity.LedgerEntry {
	rows := make([]entity.LedgerEntry, 0, 2*len(bookings)+len(manual))
	for _, b := range bookings {
		if !month.Contains(b.EventDate) {
			continue
		}
		rows = append(rows, BookingEntries(b)...)
	}
	for _, e := range manual {
		if !month.Contains(e.Date) {
			continue
		}
		rows = append(rows, ManualEntry(e))
	}

	slices.SortStableFunc(rows, func(a, b entity.LedgerEntry) int {
		return b.Date.Compare(a.Date.Time)
	})
	return rows
}

// Filter keeps the rows matching f. It does not look at Source.
func Filter(rows []entity.LedgerEntry, f entity.LedgerFilter) []entity.LedgerEntry {
	out := make([]entity.LedgerEntry, 0, len(rows))
	for _, r := range rows {
		if f.Type != "" && r.Type != f.Type {
			continue
		}
		if f.From != nil && r.Date.Before(f.From.Time) {
			continue
		}
		if f.To != nil && r.Date.After(f.To.Time) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func Totals(rows []entity.LedgerEntry) entity.LedgerTotals {
	income, expense := decimal.Zero, decimal.Zero
	for _, r := range rows {
		switch r.Type {
		case entity.EntryTypeIncome:
			income = income.Add(r.Amount)
		case entity.EntryTypeExpense:
			expense = expense.Add(r.Amount)
		}
	}
	return entity.LedgerTotals{
		Income:  income,
		Expense: expense,
		Net:     income.Sub(expense),
	}
}

// Period is the manager's cashflow tab for one month.
func Period(month Month, bookings []*entity.Booking, manual []*entity.CashflowEntry, f entity.LedgerFilter) *entity.PeriodLedger {
	rows := Filter(BuildLedger(month, bookings, manual), f)
	return &entity.PeriodLedger{
		Month:   month.String(),
		Entries: rows,
		Totals:  Totals(rows),
	}
}
