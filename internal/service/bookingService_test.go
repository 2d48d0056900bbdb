package service

import (
	"context"
	"testing"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"
	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type bookingFixture struct {
	repo      *fakeBookingRepo
	catalog   *fakeCatalogRepo
	rollups   *fakeRollupCache
	publisher *fakeTaskPublisher
	svc       BookingService
}

func newBookingFixture() *bookingFixture {
	repo := newFakeBookingRepo()
	f := &bookingFixture{
		repo: repo,
		catalog: &fakeCatalogRepo{items: map[string]*entity.CatalogItem{
			"pkg-gold": {ID: "pkg-gold", Kind: entity.CatalogKindPackage, Price: d("25000")},
			"mixed":    {ID: "mixed", Kind: entity.CatalogKindServiceType, Price: d("300")},
			"lechon":   {ID: "lechon", Kind: entity.CatalogKindFood, Price: d("6000")},
			"waiter":   {ID: "waiter", Kind: entity.CatalogKindService, Price: d("1500")},
		}},
		rollups:   &fakeRollupCache{},
		publisher: &fakeTaskPublisher{},
	}
	f.svc = NewBookingService(
		repo,
		&fakeTransactionRepo{bookings: repo},
		f.catalog,
		f.rollups,
		lifecycle.FixedClock{At: testNow},
		f.publisher,
		BookingOptions{ReminderLead: 24 * time.Hour},
	)
	return f
}

func (f *bookingFixture) seed(status entity.BookingStatus) *entity.Booking {
	b := &entity.Booking{
		ID:                uuid.New(),
		OwnerID:           "customer-1",
		EventType:         "wedding",
		ServiceType:       entity.ServiceTypeMixed,
		EventDate:         entity.NewDate(2025, time.April, 12),
		EventTime:         "18:00",
		TotalPrice:        d("50000"),
		Expenses:          entity.ItemizedExpenses(),
		Status:            status,
		PaymentStatus:     entity.PaymentStatusPending,
		RescheduleHistory: []entity.RescheduleEntry{},
		AssignedStaff:     []string{},
	}
	if status == entity.BookingStatusConfirmed {
		b.FinalPrice = money.Some(d("50000"))
		b.Downpayment = d("20000")
		b.AmountPaid = d("20000")
		b.RemainingBalance = d("30000")
		b.PaymentStatus = entity.PaymentStatusPartial
	}
	f.repo.put(b)
	return b
}

func TestEstimate(t *testing.T) {
	f := newBookingFixture()

	got, err := f.svc.Estimate(context.Background(), pricing.Selection{
		PackageID:   "pkg-gold",
		ServiceType: entity.ServiceTypeMixed,
		GuestCount:  50,
		FoodItemIDs: []string{"lechon", "retired"},
		Services:    []entity.ServiceSelection{{ServiceID: "waiter", Quantity: 2}},
	})
	require.NoError(t, err)

	assert.True(t, got.Total.Equal(d("49000")), got.Total.String())
	assert.Equal(t, []string{"retired"}, got.Missing)
}

func TestOpenBooking(t *testing.T) {
	f := newBookingFixture()

	booking, estimate, err := f.svc.OpenBooking(context.Background(), &OpenBookingRequest{
		OwnerID:     "customer-1",
		EventType:   "debut",
		PackageID:   "pkg-gold",
		ServiceType: entity.ServiceTypeMixed,
		GuestCount:  10,
		EventDate:   entity.NewDate(2025, time.May, 3),
		EventTime:   "17:30",
	}, "customer-1")
	require.NoError(t, err)

	assert.True(t, booking.TotalPrice.Equal(d("28000")))
	assert.True(t, estimate.Total.Equal(booking.TotalPrice))
	assert.Equal(t, entity.BookingStatusPending, booking.Status)
	assert.Equal(t, int64(1), booking.Version)

	stored, err := f.svc.GetBooking(context.Background(), booking.ID)
	require.NoError(t, err)
	assert.Equal(t, "debut", stored.EventType)
}

func TestOpenBookingValidation(t *testing.T) {
	f := newBookingFixture()

	_, _, err := f.svc.OpenBooking(context.Background(), &OpenBookingRequest{
		OwnerID:     "customer-1",
		ServiceType: entity.ServiceTypeMixed,
		EventDate:   entity.NewDate(2025, time.May, 3),
		EventTime:   "25:00",
	}, "customer-1")
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}

func TestConfirmBookingPublishesTasks(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusPending)

	confirmed, err := f.svc.ConfirmBooking(context.Background(), b.ID, &ConfirmBookingRequest{
		Downpayment: d("20000"),
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusConfirmed, confirmed.Status)
	assert.True(t, confirmed.RemainingBalance.Equal(d("30000")))
	assert.Equal(t, int64(2), confirmed.Version)

	status := f.publisher.ofType(TaskTypeStatusNotification)
	require.Len(t, status, 1)
	assert.Equal(t, "confirmed", status[0].Data[queue.DataStatus])
	assert.Equal(t, "admin-1", status[0].Data[queue.DataActor])

	reminders := f.publisher.ofType(TaskTypeEventReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, time.Date(2025, time.April, 11, 18, 0, 0, 0, time.UTC), reminders[0].ExecuteAt)
	assert.Equal(t, "2025-04-12", reminders[0].Data[queue.DataEventDate])
	assert.Equal(t, "18:00", reminders[0].Data[queue.DataEventTime])
}

func TestConfirmBookingInsideReminderWindow(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusPending)
	b.EventDate = entity.DateOf(testNow)
	b.EventTime = "20:00"
	f.repo.put(b)

	_, err := f.svc.ConfirmBooking(context.Background(), b.ID, &ConfirmBookingRequest{}, "admin-1")
	require.NoError(t, err)

	assert.Empty(t, f.publisher.ofType(TaskTypeEventReminder))
	assert.Len(t, f.publisher.ofType(TaskTypeStatusNotification), 1)
}

func TestConfirmBookingRejectedLeavesStoreUntouched(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusPending)

	_, err := f.svc.ConfirmBooking(context.Background(), b.ID, &ConfirmBookingRequest{
		Downpayment: d("60000"),
	}, "admin-1")

	var verr *entity.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "downpayment", verr.Field)
	assert.Empty(t, f.publisher.tasks)

	stored, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusPending, stored.Status)
	assert.Equal(t, int64(1), stored.Version)
}

func TestRejectBooking(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusPending)

	rejected, err := f.svc.RejectBooking(context.Background(), b.ID, "  venue unavailable ", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusCancelled, rejected.Status)

	status := f.publisher.ofType(TaskTypeStatusNotification)
	require.Len(t, status, 1)
	assert.Equal(t, "venue unavailable", status[0].Data[queue.DataReason])

	_, err = f.svc.RejectBooking(context.Background(), b.ID, "again", "admin-1")
	assert.ErrorIs(t, err, entity.ErrInvalidTransition)
}

func TestRescheduleConfirmedBookingQueuesNewReminder(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusConfirmed)

	moved, err := f.svc.RescheduleBooking(context.Background(), b.ID, &RescheduleBookingRequest{
		NewDate: entity.NewDate(2025, time.April, 19),
		NewTime: "18:00",
		Reason:  "typhoon",
		Fee:     d("500"),
	}, "admin-1")
	require.NoError(t, err)

	assert.True(t, moved.RemainingBalance.Equal(d("31000")))
	reminders := f.publisher.ofType(TaskTypeEventReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, "2025-04-19", reminders[0].Data[queue.DataEventDate])
}

func TestCompleteBookingRefreshesMonthlyReport(t *testing.T) {
	f := newBookingFixture()
	f.publisher.err = errBoom
	ctx := context.Background()
	reports := NewCashflowService(f.repo, &fakeTransactionRepo{bookings: f.repo}, &fakeCashflowRepo{entries: map[uuid.UUID]*entity.CashflowEntry{}},
		f.rollups, lifecycle.FixedClock{At: testNow}, time.UTC)

	warm, err := reports.MonthlyRollup(ctx)
	require.NoError(t, err)
	assert.Empty(t, warm)
	require.True(t, f.rollups.hit)

	b := f.seed(entity.BookingStatusConfirmed)
	_, txn, err := f.svc.CompleteBooking(ctx, b.ID, &CompleteBookingRequest{FinalPayment: money.Some(d("30000"))}, "admin-1")
	require.NoError(t, err)
	assert.Empty(t, f.publisher.tasks)

	rollups, err := reports.MonthlyRollup(ctx)
	require.NoError(t, err)
	require.Len(t, rollups, 1)
	assert.True(t, rollups[0].Income.Equal(txn.Amount))
	require.Len(t, rollups[0].Transactions, 1)
	assert.Equal(t, txn.ID, rollups[0].Transactions[0].ID)
}

func TestCompleteBooking(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusConfirmed)

	_, _, err := f.svc.AddExpense(context.Background(), b.ID, &ExpenseRequest{
		Description: "Ingredients",
		Amount:      d("13500"),
	}, "admin-1")
	require.NoError(t, err)

	completed, txn, err := f.svc.CompleteBooking(context.Background(), b.ID, &CompleteBookingRequest{
		FinalPayment: money.Some(d("30000")),
	}, "admin-1")
	require.NoError(t, err)

	assert.Equal(t, entity.BookingStatusCompleted, completed.Status)
	assert.True(t, txn.Amount.Equal(d("50000")))
	assert.True(t, txn.Profit.Equal(d("36500")))
	assert.Equal(t, testNow, txn.CompletedAt)

	stored, err := f.svc.GetTransaction(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, stored.ID)

	recorded := f.publisher.ofType(TaskTypeTransactionRecorded)
	require.Len(t, recorded, 1)
	assert.Equal(t, "50000.00", recorded[0].Data[queue.DataAmount])
	assert.Equal(t, "36500.00", recorded[0].Data[queue.DataProfit])
}

func TestCompleteBookingMismatch(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusConfirmed)

	_, _, err := f.svc.CompleteBooking(context.Background(), b.ID, &CompleteBookingRequest{
		FinalPayment: money.Some(d("29000")),
	}, "admin-1")

	var mismatch *entity.PaymentMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.True(t, mismatch.Expected.Equal(d("50000")))

	_, err = f.svc.GetTransaction(context.Background(), b.ID)
	assert.ErrorIs(t, err, entity.ErrTransactionNotFound)
	assert.Empty(t, f.publisher.tasks)
}

func TestCompleteBookingTransactionAlreadyRecorded(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusConfirmed)
	f.repo.transactions[b.ID] = &entity.Transaction{ID: uuid.New(), BookingID: b.ID}

	_, _, err := f.svc.CompleteBooking(context.Background(), b.ID, &CompleteBookingRequest{
		FinalPayment: money.Some(d("30000")),
	}, "admin-1")
	assert.ErrorIs(t, err, entity.ErrTransactionExists)

	stored, err := f.svc.GetBooking(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BookingStatusConfirmed, stored.Status)
}

func TestStaleWriteIsAConflict(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusPending)

	// simulate another writer bumping the version between load and save
	stale := f.repo.bookings[b.ID]
	stale.Version = 5

	svc := f.svc.(*bookingService)
	_, err := svc.mutate(context.Background(), b.ID, "assign_staff", "admin-1", func(cur *entity.Booking) (*entity.Booking, error) {
		next, err := svc.engine.AssignStaff(cur, "staff-1", "admin-1")
		if err != nil {
			return nil, err
		}
		next.Version = 4
		return next, nil
	})
	assert.ErrorIs(t, err, entity.ErrConcurrentUpdate)
}

func TestStaffAndBudget(t *testing.T) {
	f := newBookingFixture()
	b := f.seed(entity.BookingStatusConfirmed)
	ctx := context.Background()

	_, err := f.svc.AssignStaff(ctx, b.ID, "staff-1", "admin-1")
	require.NoError(t, err)
	_, err = f.svc.AssignStaff(ctx, b.ID, "staff-2", "admin-1")
	require.NoError(t, err)
	updated, err := f.svc.UnassignStaff(ctx, b.ID, "staff-1", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-2"}, updated.AssignedStaff)

	_, err = f.svc.SetBudget(ctx, b.ID, money.Some(d("10000")), "admin-1")
	require.NoError(t, err)
	_, item, err := f.svc.AddExpense(ctx, b.ID, &ExpenseRequest{Description: "Chairs", Amount: d("8500")}, "admin-1")
	require.NoError(t, err)

	health, err := f.svc.GetBudgetHealth(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BudgetStatusAtRisk, health.Status)

	_, err = f.svc.EditExpense(ctx, b.ID, item.ID, &ExpenseRequest{Description: "Chairs", Amount: d("12000")}, "admin-1")
	require.NoError(t, err)
	health, err = f.svc.GetBudgetHealth(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.BudgetStatusOver, health.Status)

	_, err = f.svc.EditExpense(ctx, b.ID, "missing", &ExpenseRequest{Description: "x"}, "admin-1")
	assert.ErrorIs(t, err, entity.ErrExpenseNotFound)

	after, err := f.svc.DeleteExpense(ctx, b.ID, item.ID, "admin-1")
	require.NoError(t, err)
	assert.Zero(t, after.Expenses.Len())
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	f := newBookingFixture()
	f.publisher.err = errBoom
	b := f.seed(entity.BookingStatusPending)

	_, err := f.svc.RejectBooking(context.Background(), b.ID, "no slot", "admin-1")
	assert.NoError(t, err)
}

func TestAwaitingSettlement(t *testing.T) {
	f := newBookingFixture()
	past := f.seed(entity.BookingStatusConfirmed)
	past.EventDate = entity.NewDate(2025, time.March, 1)
	f.repo.put(past)
	f.seed(entity.BookingStatusConfirmed)
	f.seed(entity.BookingStatusPending)

	bookings, summary, err := f.svc.AwaitingSettlement(context.Background(), entity.DateOf(testNow))
	require.NoError(t, err)

	require.Len(t, bookings, 1)
	assert.Equal(t, past.ID, bookings[0].ID)
	assert.Equal(t, 1, summary.AwaitingSettle)
	assert.Equal(t, 2, summary.ByStatus[entity.BookingStatusConfirmed])
	assert.True(t, summary.OutstandingTotal.Equal(d("60000")))
}

func TestGetBookingNotFound(t *testing.T) {
	f := newBookingFixture()

	_, err := f.svc.GetBooking(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entity.ErrBookingNotFound)
}
