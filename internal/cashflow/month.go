// Package cashflow builds the reporting views over bookings, manual ledger
// entries and completed transactions. Nothing here performs I/O.
package cashflow

import (
	"fmt"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
)

const monthLayout = "2006-01"

// Month is a calendar reporting period such as 2025-04.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, entity.NewValidationError("month", "expected YYYY-MM, got %q", s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MonthOf is the month t falls in when viewed from loc.
func MonthOf(t time.Time, loc *time.Location) Month {
	if loc != nil {
		t = t.In(loc)
	}
	return Month{Year: t.Year(), Month: t.Month()}
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

func (m Month) First() entity.Date {
	return entity.NewDate(m.Year, m.Month, 1)
}

func (m Month) Last() entity.Date {
	return entity.DateOf(m.First().AddDate(0, 1, -1))
}

func (m Month) Contains(d entity.Date) bool {
	return !d.IsZero() && d.Year() == m.Year && d.Month() == m.Month
}
