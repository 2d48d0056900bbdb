package cashflow

import (
	"slices"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/shopspring/decimal"
)

// MonthlyRollup groups transactions by the month of completion in loc,
// newest month first. Only transactions are read, so later edits to a
// booking cannot change a past month.
func MonthlyRollup(txns []*entity.Transaction, loc *time.Location) []entity.MonthlyRollup {
	groups := make(map[string]*entity.MonthlyRollup)
	for _, t := range txns {
		key := MonthOf(t.CompletedAt, loc).String()
		g, ok := groups[key]
		if !ok {
			g = &entity.MonthlyRollup{
				Month:    key,
				Income:   decimal.Zero,
				Expenses: decimal.Zero,
			}
			groups[key] = g
		}
		g.Income = g.Income.Add(t.Amount)
		g.Expenses = g.Expenses.Add(t.TotalExpenses)
		g.Transactions = append(g.Transactions, t)
	}

	out := make([]entity.MonthlyRollup, 0, len(groups))
	for _, g := range groups {
		g.Profit = g.Income.Sub(g.Expenses)
		slices.SortStableFunc(g.Transactions, func(a, b *entity.Transaction) int {
			return b.CompletedAt.Compare(a.CompletedAt)
		})
		out = append(out, *g)
	}
	slices.SortFunc(out, func(a, b entity.MonthlyRollup) int {
		return strings.Compare(b.Month, a.Month)
	})
	return out
}
