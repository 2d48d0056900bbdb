package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine() *Engine {
	seq := 0
	return NewEngine(FixedClock{At: testNow}, WithIDGenerator(func() uuid.UUID {
		seq++
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(seq)})
	}))
}

func pendingBooking() *entity.Booking {
	return &entity.Booking{
		ID:                uuid.MustParse("8b0c3c52-6a55-4d0e-9a57-8f0c1c8c2e11"),
		OwnerID:           "owner-1",
		ServiceType:       entity.ServiceTypeMixed,
		EventDate:         entity.NewDate(2025, 4, 12),
		EventTime:         "18:00",
		TotalPrice:        d("50000"),
		Status:            entity.BookingStatusPending,
		PaymentStatus:     entity.PaymentStatusPending,
		AmountPaid:        decimal.Zero,
		Expenses:          entity.ItemizedExpenses(),
		RescheduleHistory: []entity.RescheduleEntry{},
		AssignedStaff:     []string{},
	}
}

func confirmedBooking(t *testing.T, e *Engine) *entity.Booking {
	t.Helper()
	b, err := e.Confirm(pendingBooking(), ConfirmInput{Downpayment: d("20000")}, "manager-1")
	require.NoError(t, err)
	return b
}

type catalogStub map[string]decimal.Decimal

func (c catalogStub) PackagePrice(id string) (decimal.Decimal, bool) { v, ok := c[id]; return v, ok }
func (c catalogStub) ServiceTypePrice(t entity.ServiceType) (decimal.Decimal, bool) {
	v, ok := c[string(t)]
	return v, ok
}
func (c catalogStub) FoodPrice(id string) (decimal.Decimal, bool)    { v, ok := c[id]; return v, ok }
func (c catalogStub) ServicePrice(id string) (decimal.Decimal, bool) { v, ok := c[id]; return v, ok }

func TestAllowed(t *testing.T) {
	tests := []struct {
		from   entity.BookingStatus
		action Action
		want   bool
	}{
		{entity.BookingStatusPending, ActionConfirm, true},
		{entity.BookingStatusPending, ActionReject, true},
		{entity.BookingStatusPending, ActionReschedule, true},
		{entity.BookingStatusPending, ActionComplete, false},
		{entity.BookingStatusConfirmed, ActionConfirm, false},
		{entity.BookingStatusConfirmed, ActionReject, false},
		{entity.BookingStatusConfirmed, ActionReschedule, true},
		{entity.BookingStatusConfirmed, ActionComplete, true},
		{entity.BookingStatusCompleted, ActionReschedule, false},
		{entity.BookingStatusCancelled, ActionConfirm, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"/"+string(tt.action), func(t *testing.T) {
			ok, err := Allowed(tt.action, tt.from)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}

	_, err := Allowed(ActionConfirm, entity.BookingStatus("archived"))
	assert.Error(t, err)
}

func TestOpen(t *testing.T) {
	e := newTestEngine()
	catalog := catalogStub{"pkg-gold": d("10000"), "mixed": d("250"), "lechon": d("5000")}

	b, est, err := e.Open(OpenInput{
		OwnerID:   "owner-1",
		CreatedBy: "customer-7",
		Selection: pricing.Selection{
			PackageID:   "pkg-gold",
			ServiceType: entity.ServiceTypeMixed,
			GuestCount:  100,
			FoodItemIDs: []string{"lechon", "retired-dish"},
		},
		EventDate: entity.NewDate(2025, 5, 1),
		EventTime: "17:30",
	}, catalog)
	require.NoError(t, err)

	assert.True(t, b.TotalPrice.Equal(d("40000")), "total %s", b.TotalPrice)
	assert.Equal(t, []string{"retired-dish"}, est.Missing)
	assert.Equal(t, entity.BookingStatusPending, b.Status)
	assert.Equal(t, entity.PaymentStatusPending, b.PaymentStatus)
	assert.True(t, b.AmountPaid.IsZero())
	assert.Equal(t, 0, b.Expenses.Len())
	assert.Equal(t, testNow, b.CreatedAt)
	assert.NotEqual(t, uuid.Nil, b.ID)
}

func TestOpenValidation(t *testing.T) {
	e := newTestEngine()
	base := OpenInput{
		OwnerID:   "owner-1",
		Selection: pricing.Selection{ServiceType: entity.ServiceTypeFoodOnly, GuestCount: 10},
		EventDate: entity.NewDate(2025, 5, 1),
		EventTime: "12:00",
	}

	tests := []struct {
		name  string
		field string
		mod   func(in *OpenInput)
	}{
		{"missing owner", "owner_id", func(in *OpenInput) { in.OwnerID = " " }},
		{"missing date", "event_date", func(in *OpenInput) { in.EventDate = entity.Date{} }},
		{"bad time", "event_time", func(in *OpenInput) { in.EventTime = "25:99" }},
		{"bad service type", "service_type", func(in *OpenInput) { in.Selection.ServiceType = "buffet" }},
		{"negative guests", "guest_count", func(in *OpenInput) { in.Selection.GuestCount = -1 }},
		{"negative budget", "budget", func(in *OpenInput) { in.Budget = money.Some(d("-1")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mod(&in)
			_, _, err := e.Open(in, catalogStub{})
			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestConfirm(t *testing.T) {
	e := newTestEngine()
	orig := pendingBooking()

	b, err := e.Confirm(orig, ConfirmInput{
		FinalPrice:  money.Some(d("48000")),
		Downpayment: d("20000"),
		Discount:    d("2000"),
		PriceNotes:  " loyal customer ",
	}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
	assert.True(t, b.FinalPrice.Valid)
	assert.True(t, b.FinalPrice.Decimal.Equal(d("48000")))
	assert.True(t, b.RemainingBalance.Equal(d("28000")))
	assert.True(t, b.AmountPaid.Equal(d("20000")))
	assert.Equal(t, entity.PaymentStatusPartial, b.PaymentStatus)
	assert.Equal(t, "loyal customer", b.PriceNotes)
	require.NotNil(t, b.ConfirmedAt)
	assert.Equal(t, testNow, *b.ConfirmedAt)
	assert.Equal(t, "manager-1", b.ConfirmedBy)
	assert.Equal(t, "manager-1", b.UpdatedBy)

	assert.Equal(t, entity.BookingStatusPending, orig.Status, "input must not be modified")
	assert.False(t, orig.FinalPrice.Valid)
}

func TestConfirmDefaultsFinalPriceToTotal(t *testing.T) {
	e := newTestEngine()
	b, err := e.Confirm(pendingBooking(), ConfirmInput{}, "manager-1")
	require.NoError(t, err)

	assert.True(t, b.FinalPrice.Decimal.Equal(d("50000")))
	assert.True(t, b.RemainingBalance.Equal(d("50000")))
	assert.Equal(t, entity.PaymentStatusPending, b.PaymentStatus)
}

func TestConfirmDownpaymentExceedsPrice(t *testing.T) {
	e := newTestEngine()
	orig := pendingBooking()

	b, err := e.Confirm(orig, ConfirmInput{FinalPrice: money.Some(d("1000")), Downpayment: d("1500")}, "manager-1")
	assert.Nil(t, b)

	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "downpayment", verr.Field)
	assert.Equal(t, entity.BookingStatusPending, orig.Status)
}

func TestConfirmRejectsWrongStatus(t *testing.T) {
	e := newTestEngine()
	b := confirmedBooking(t, e)

	_, err := e.Confirm(b, ConfirmInput{}, "manager-1")
	assert.True(t, errors.Is(err, entity.ErrInvalidTransition))
}

func TestReject(t *testing.T) {
	e := newTestEngine()

	_, err := e.Reject(pendingBooking(), "   ", "manager-1")
	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "reason", verr.Field)

	b, err := e.Reject(pendingBooking(), "venue unavailable", "manager-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, b.Status)
	assert.Equal(t, "venue unavailable", b.RejectionReason)
	assert.Equal(t, "manager-1", b.CancelledBy)
	require.NotNil(t, b.CancelledAt)

	_, err = e.Reject(confirmedBooking(t, e), "too late", "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestReschedule(t *testing.T) {
	e := newTestEngine()
	b := confirmedBooking(t, e)

	next, err := e.Reschedule(b, RescheduleInput{
		NewDate: entity.NewDate(2025, 4, 19),
		NewTime: "19:00",
		Reason:  "client request",
		Fee:     d("500"),
	}, "manager-2")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, next.Status)
	assert.Equal(t, "2025-04-19", next.EventDate.String())
	assert.Equal(t, "19:00", next.EventTime)
	assert.True(t, next.FinalPrice.Decimal.Equal(d("50500")))
	assert.True(t, next.RescheduleFee.Equal(d("500")))
	assert.True(t, next.RemainingBalance.Equal(pricing.TotalDue(next).Sub(next.Downpayment)))
	assert.True(t, next.RemainingBalance.Equal(d("31000")))

	require.Len(t, next.RescheduleHistory, 1)
	h := next.RescheduleHistory[0]
	assert.Equal(t, "2025-04-12", h.OldDate.String())
	assert.Equal(t, "18:00", h.OldTime)
	assert.Equal(t, "manager-2", h.Actor)
	assert.Equal(t, testNow, h.Timestamp)

	assert.Empty(t, b.RescheduleHistory, "input must not be modified")
}

func TestRescheduleOrderIndependent(t *testing.T) {
	e := newTestEngine()
	first := RescheduleInput{NewDate: entity.NewDate(2025, 4, 20), NewTime: "18:00", Reason: "rain", Fee: d("300")}
	second := RescheduleInput{NewDate: entity.NewDate(2025, 4, 27), NewTime: "18:00", Reason: "venue", Fee: d("750.50")}

	run := func(ins ...RescheduleInput) *entity.Booking {
		b := pendingBooking()
		for _, in := range ins {
			var err error
			b, err = e.Reschedule(b, in, "manager-1")
			require.NoError(t, err)
		}
		return b
	}

	ab := run(first, second)
	ba := run(second, first)

	assert.True(t, ab.FinalPrice.Decimal.Equal(ba.FinalPrice.Decimal))
	assert.True(t, ab.RescheduleFee.Equal(ba.RescheduleFee))
	assert.True(t, ab.RescheduleFee.Equal(d("1050.50")))
	assert.Len(t, ab.RescheduleHistory, 2)
	assert.Len(t, ba.RescheduleHistory, 2)
}

func TestRescheduleValidation(t *testing.T) {
	e := newTestEngine()
	valid := RescheduleInput{NewDate: entity.NewDate(2025, 4, 20), NewTime: "18:00", Reason: "rain"}

	tests := []struct {
		name  string
		field string
		mod   func(in *RescheduleInput)
	}{
		{"missing date", "new_date", func(in *RescheduleInput) { in.NewDate = entity.Date{} }},
		{"bad time", "event_time", func(in *RescheduleInput) { in.NewTime = "6pm" }},
		{"missing reason", "reason", func(in *RescheduleInput) { in.Reason = "" }},
		{"negative fee", "fee", func(in *RescheduleInput) { in.Fee = d("-5") }},
		{"same slot", "new_date", func(in *RescheduleInput) {
			in.NewDate = entity.NewDate(2025, 4, 12)
			in.NewTime = "18:00"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mod(&in)
			_, err := e.Reschedule(pendingBooking(), in, "manager-1")
			var verr *entity.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	cancelled := pendingBooking()
	cancelled.Status = entity.BookingStatusCancelled
	_, err := e.Reschedule(cancelled, valid, "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestCompleteExactReconciliation(t *testing.T) {
	e := newTestEngine()
	b := pendingBooking()
	b.Status = entity.BookingStatusConfirmed
	b.FinalPrice = money.Some(d("50000"))
	b.RescheduleFee = d("500")
	b.Downpayment = d("20000")
	b.Expenses = entity.ItemizedExpenses(
		entity.ExpenseItem{ID: "e1", Description: "ingredients", Amount: d("12000")},
		entity.ExpenseItem{ID: "e2", Description: "transport", Amount: d("1500")},
	)

	done, txn, err := e.Complete(b, CompleteInput{FinalPayment: money.Some(d("30500"))}, "manager-1")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusCompleted, done.Status)
	assert.Equal(t, entity.PaymentStatusPaid, done.PaymentStatus)
	assert.True(t, done.AmountPaid.Equal(d("50500")))
	assert.True(t, done.RemainingBalance.IsZero())
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, "manager-1", done.CompletedBy)

	require.NotNil(t, txn)
	assert.Equal(t, b.ID, txn.BookingID)
	assert.True(t, txn.Amount.Equal(d("50500")))
	assert.True(t, txn.TotalExpenses.Equal(d("13500")))
	assert.True(t, txn.Profit.Equal(d("37000")))
	assert.Len(t, txn.Expenses, 2)
	assert.Equal(t, testNow, txn.CompletedAt)
}

func TestRemainingBalanceSettlesAfterReschedule(t *testing.T) {
	reschedule := RescheduleInput{
		NewDate: entity.NewDate(2025, 4, 19),
		NewTime: "19:00",
		Reason:  "client request",
		Fee:     d("500"),
	}

	tests := []struct {
		name string
		run  func(t *testing.T, e *Engine) *entity.Booking
		due  string
	}{
		{
			name: "confirm then reschedule",
			run: func(t *testing.T, e *Engine) *entity.Booking {
				b, err := e.Reschedule(confirmedBooking(t, e), reschedule, "manager-1")
				require.NoError(t, err)
				return b
			},
			due: "51000",
		},
		{
			name: "reschedule while pending then confirm",
			run: func(t *testing.T, e *Engine) *entity.Booking {
				b, err := e.Reschedule(pendingBooking(), reschedule, "manager-1")
				require.NoError(t, err)
				b, err = e.Confirm(b, ConfirmInput{Downpayment: d("20000")}, "manager-1")
				require.NoError(t, err)
				assert.True(t, b.FinalPrice.Decimal.Equal(d("50500")), "pending fee must survive confirmation")
				return b
			},
			due: "51000",
		},
		{
			name: "pending reschedule then confirm with explicit price",
			run: func(t *testing.T, e *Engine) *entity.Booking {
				b, err := e.Reschedule(pendingBooking(), reschedule, "manager-1")
				require.NoError(t, err)
				b, err = e.Confirm(b, ConfirmInput{FinalPrice: money.Some(d("48000")), Downpayment: d("20000")}, "manager-1")
				require.NoError(t, err)
				return b
			},
			due: "48500",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			b := tt.run(t, e)

			assert.True(t, pricing.TotalDue(b).Equal(d(tt.due)))
			assert.True(t, b.RemainingBalance.Equal(d(tt.due).Sub(d("20000"))))

			done, txn, err := e.Complete(b, CompleteInput{FinalPayment: money.Some(b.RemainingBalance)}, "manager-1")
			require.NoError(t, err)
			assert.True(t, done.AmountPaid.Equal(d(tt.due)))
			assert.True(t, txn.Amount.Equal(d(tt.due)))
		})
	}
}

func TestCompleteMismatchProducesNoTransaction(t *testing.T) {
	e := newTestEngine()
	b := confirmedBooking(t, e)

	tests := []struct {
		name string
		fp   decimal.NullDecimal
	}{
		{"short by more than a cent", money.Some(d("29999.98"))},
		{"over by more than a cent", money.Some(d("30000.02"))},
		{"missing final payment", decimal.NullDecimal{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			done, txn, err := e.Complete(b, CompleteInput{FinalPayment: tt.fp}, "manager-1")
			assert.Nil(t, done)
			assert.Nil(t, txn)

			var mismatch *entity.PaymentMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.True(t, mismatch.Expected.Equal(d("50000")))
		})
	}
	assert.Equal(t, entity.BookingStatusConfirmed, b.Status)
}

func TestCompleteWithinTolerance(t *testing.T) {
	e := newTestEngine()
	done, txn, err := e.Complete(confirmedBooking(t, e), CompleteInput{FinalPayment: money.Some(d("29999.99"))}, "manager-1")
	require.NoError(t, err)
	assert.True(t, done.AmountPaid.Equal(d("49999.99")))
	assert.NotNil(t, txn)
}

func TestCompleteCoveredByDownpayment(t *testing.T) {
	e := newTestEngine()
	b, err := e.Confirm(pendingBooking(), ConfirmInput{Downpayment: d("50000")}, "manager-1")
	require.NoError(t, err)

	done, txn, err := e.Complete(b, CompleteInput{}, "manager-1")
	require.NoError(t, err)
	assert.True(t, done.FinalPayment.IsZero())
	assert.True(t, txn.Amount.Equal(d("50000")))
}

func TestCompleteRequiresConfirmed(t *testing.T) {
	e := newTestEngine()
	_, txn, err := e.Complete(pendingBooking(), CompleteInput{FinalPayment: money.Some(d("50000"))}, "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
	assert.Nil(t, txn)
}

func TestTransactionIsSnapshot(t *testing.T) {
	e := newTestEngine()
	b := confirmedBooking(t, e)
	b, _, err := e.AddExpense(b, ExpenseInput{Description: "chairs", Amount: d("800")}, "manager-1")
	require.NoError(t, err)

	done, txn, err := e.Complete(b, CompleteInput{FinalPayment: money.Some(d("30000"))}, "manager-1")
	require.NoError(t, err)

	edited, _, err := e.AddExpense(done, ExpenseInput{Description: "late fee", Amount: d("200")}, "manager-1")
	require.NoError(t, err)

	assert.True(t, edited.Expenses.Total().Equal(d("1000")))
	assert.True(t, txn.TotalExpenses.Equal(d("800")))
	assert.Len(t, txn.Expenses, 1)
}

func TestStaffAssignment(t *testing.T) {
	e := newTestEngine()
	b := pendingBooking()

	b, err := e.AssignStaff(b, "staff-1", "manager-1")
	require.NoError(t, err)
	b, err = e.AssignStaff(b, "staff-2", "manager-1")
	require.NoError(t, err)
	b, err = e.AssignStaff(b, "staff-1", "manager-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-1", "staff-2"}, b.AssignedStaff)

	b, err = e.UnassignStaff(b, "staff-1", "manager-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-2"}, b.AssignedStaff)

	_, err = e.AssignStaff(b, "", "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestExpenseEditing(t *testing.T) {
	e := newTestEngine()
	b := pendingBooking()

	b, item, err := e.AddExpense(b, ExpenseInput{Description: "rice", Amount: d("1200")}, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, "general", item.Category)
	assert.Equal(t, "2025-03-10", item.Date.String())

	b, err = e.EditExpense(b, item.ID, ExpenseInput{Description: "rice, 3 sacks", Amount: d("1500"), Category: "food"}, "manager-1")
	require.NoError(t, err)
	items := b.Expenses.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "food", items[0].Category)
	assert.True(t, b.Expenses.Total().Equal(d("1500")))

	_, err = e.EditExpense(b, "missing", ExpenseInput{Description: "x", Amount: d("1")}, "manager-1")
	assert.ErrorIs(t, err, entity.ErrExpenseNotFound)

	_, _, err = e.AddExpense(b, ExpenseInput{Description: "refund", Amount: d("-1")}, "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	b, err = e.DeleteExpense(b, "missing", "manager-1")
	require.NoError(t, err)
	assert.Equal(t, 1, b.Expenses.Len())

	b, err = e.DeleteExpense(b, item.ID, "manager-1")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Expenses.Len())
	assert.True(t, b.Expenses.Total().IsZero())
}

func TestAddExpenseCarriesLegacyTotal(t *testing.T) {
	e := newTestEngine()
	b := pendingBooking()
	b.Expenses = entity.LegacyExpenses(d("2000"))

	b, _, err := e.AddExpense(b, ExpenseInput{Description: "ice", Amount: d("150")}, "manager-1")
	require.NoError(t, err)

	items := b.Expenses.Items()
	require.Len(t, items, 2)
	assert.Equal(t, entity.LegacyExpenseID, items[0].ID)
	assert.True(t, b.Expenses.Total().Equal(d("2150")))
}

func TestSetBudget(t *testing.T) {
	e := newTestEngine()

	b, err := e.SetBudget(pendingBooking(), money.Some(d("30000")), "manager-1")
	require.NoError(t, err)
	assert.True(t, b.Budget.Valid)

	b, err = e.SetBudget(b, decimal.NullDecimal{}, "manager-1")
	require.NoError(t, err)
	assert.False(t, b.Budget.Valid)

	_, err = e.SetBudget(b, money.Some(d("-10")), "manager-1")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestEventStart(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)

	b := pendingBooking()
	start := EventStart(b, loc)
	assert.Equal(t, time.Date(2025, 4, 12, 18, 0, 0, 0, loc), start)
}
