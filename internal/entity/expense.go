package entity

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LegacyExpenseID identifies the item that stands in for a pre-itemization expense total.
const LegacyExpenseID = "legacy-total"

type ExpenseItem struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Date        Date            `json:"date"`
}

// Expenses is either a single legacy total or an ordered list of items.
// Older documents stored only a number; newer ones store the list.
type Expenses struct {
	legacy *decimal.Decimal
	items  []ExpenseItem
}

// LegacyExpenses holds a single pre-itemization total.
func LegacyExpenses(total decimal.Decimal) Expenses {
	return Expenses{legacy: &total}
}

// ItemizedExpenses holds a copy of items.
func ItemizedExpenses(items ...ExpenseItem) Expenses {
	return Expenses{items: append([]ExpenseItem(nil), items...)}
}

// Items returns the expense lines. A legacy total is presented as one
// carried-over item so callers never look at the stored shape.
func (e Expenses) Items() []ExpenseItem {
	if e.legacy != nil {
		if e.legacy.IsZero() {
			return []ExpenseItem{}
		}
		return []ExpenseItem{{
			ID:          LegacyExpenseID,
			Description: "Expense total recorded before itemization",
			Amount:      *e.legacy,
			Category:    "legacy",
		}}
	}
	return append([]ExpenseItem{}, e.items...)
}

// Total is the booking's expense sum. Missing amounts count as zero.
func (e Expenses) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range e.Items() {
		if item.Amount.IsNegative() {
			continue
		}
		total = total.Add(item.Amount)
	}
	return total
}

func (e Expenses) Len() int {
	return len(e.Items())
}

func (e Expenses) clone() Expenses {
	c := Expenses{items: append([]ExpenseItem(nil), e.items...)}
	if e.legacy != nil {
		v := *e.legacy
		c.legacy = &v
	}
	return c
}

func (e Expenses) MarshalJSON() ([]byte, error) {
	if e.legacy != nil {
		return json.Marshal(*e.legacy)
	}
	if e.items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(e.items)
}

func (e *Expenses) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*e = Expenses{}
	case data[0] == '[':
		var items []ExpenseItem
		if err := json.Unmarshal(data, &items); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		*e = ItemizedExpenses(items...)
	default:
		var total decimal.Decimal
		if err := total.UnmarshalJSON(data); err != nil {
			return fmt.Errorf("expenses: %w", err)
		}
		*e = LegacyExpenses(total)
	}
	return nil
}
