// Package lifecycle is the booking state machine. Each transition takes the
// current snapshot and the acting user, validates the request, and returns a
// new snapshot. The input booking is never modified, so a failed transition
// leaves nothing half written.
package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/money"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Action string

const (
	ActionConfirm    Action = "confirm"
	ActionReject     Action = "reject"
	ActionReschedule Action = "reschedule"
	ActionComplete   Action = "complete"
)

// Allowed reports whether a status transition action may run from the given status.
//
//	pending   -> confirm, reject, reschedule
//	confirmed -> reschedule, complete
//	completed, cancelled -> nothing
func Allowed(a Action, from entity.BookingStatus) (bool, error) {
	switch from {
	case entity.BookingStatusPending:
		return a == ActionConfirm || a == ActionReject || a == ActionReschedule, nil
	case entity.BookingStatusConfirmed:
		return a == ActionReschedule || a == ActionComplete, nil
	case entity.BookingStatusCompleted, entity.BookingStatusCancelled:
		return false, nil
	default:
		return false, fmt.Errorf("unknown booking status %q", from)
	}
}

type Engine struct {
	clock Clock
	newID func() uuid.UUID
}

type Option func(*Engine)

func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(e *Engine) { e.newID = fn }
}

func NewEngine(clock Clock, opts ...Option) *Engine {
	if clock == nil {
		clock = SystemClock{}
	}
	e := &Engine{clock: clock, newID: uuid.New}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type OpenInput struct {
	OwnerID   string
	CreatedBy string
	EventType string
	Selection pricing.Selection
	EventDate entity.Date
	EventTime string
	Location  entity.Location
	Budget    decimal.NullDecimal
}

// Open creates a pending booking priced from the wizard selection.
func (e *Engine) Open(in OpenInput, catalog pricing.Catalog) (*entity.Booking, pricing.Breakdown, error) {
	if strings.TrimSpace(in.OwnerID) == "" {
		return nil, pricing.Breakdown{}, entity.NewValidationError("owner_id", "is required")
	}
	if in.EventDate.IsZero() {
		return nil, pricing.Breakdown{}, entity.NewValidationError("event_date", "is required")
	}
	if _, _, err := ParseEventTime(in.EventTime); err != nil {
		return nil, pricing.Breakdown{}, err
	}
	if !in.Selection.ServiceType.Valid() {
		return nil, pricing.Breakdown{}, entity.NewValidationError("service_type", "must be one of food-only, service-only, mixed")
	}
	if err := in.Selection.Validate(); err != nil {
		return nil, pricing.Breakdown{}, err
	}
	if in.Budget.Valid && in.Budget.Decimal.IsNegative() {
		return nil, pricing.Breakdown{}, entity.NewValidationError("budget", "must not be negative")
	}

	sel := in.Selection.Normalize()
	estimate := pricing.Estimate(sel, catalog)
	now := e.clock.Now()

	b := &entity.Booking{
		ID:                e.newID(),
		OwnerID:           in.OwnerID,
		CreatedBy:         in.CreatedBy,
		EventType:         in.EventType,
		ServiceType:       sel.ServiceType,
		PackageID:         sel.PackageID,
		EventDate:         in.EventDate,
		EventTime:         in.EventTime,
		GuestCount:        sel.GuestCount,
		Location:          in.Location,
		FoodItemIDs:       sel.FoodItemIDs,
		ServiceSelections: sel.Services,
		TotalPrice:        estimate.Total,
		Budget:            in.Budget,
		Expenses:          entity.ItemizedExpenses(),
		Status:            entity.BookingStatusPending,
		PaymentStatus:     entity.PaymentStatusPending,
		AmountPaid:        decimal.Zero,
		RescheduleHistory: []entity.RescheduleEntry{},
		AssignedStaff:     []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
		UpdatedBy:         in.CreatedBy,
	}
	return b, estimate, nil
}

type ConfirmInput struct {
	FinalPrice    decimal.NullDecimal // defaults to the wizard total
	Downpayment   decimal.Decimal
	Discount      decimal.Decimal
	PriceNotes    string
	PaymentMethod string
}

// Confirm fixes the price and the downpayment. Without an explicit final price
// the agreed price is kept, including fees charged while pending.
// RemainingBalance is always what Complete still expects on top of the
// downpayment.
func (e *Engine) Confirm(b *entity.Booking, in ConfirmInput, actor string) (*entity.Booking, error) {
	if err := e.check(b, ActionConfirm); err != nil {
		return nil, err
	}

	finalPrice := money.Or(in.FinalPrice, b.AgreedPrice())
	switch {
	case finalPrice.IsNegative():
		return nil, entity.NewValidationError("final_price", "must not be negative")
	case in.Downpayment.IsNegative():
		return nil, entity.NewValidationError("downpayment", "must not be negative")
	case in.Discount.IsNegative():
		return nil, entity.NewValidationError("discount", "must not be negative")
	case in.Downpayment.GreaterThan(finalPrice):
		return nil, entity.NewValidationError("downpayment", "%s exceeds final price %s",
			in.Downpayment.StringFixed(2), finalPrice.StringFixed(2))
	}

	now := e.clock.Now()
	next := b.Clone()
	next.Status = entity.BookingStatusConfirmed
	next.FinalPrice = money.Some(finalPrice)
	next.Downpayment = in.Downpayment
	next.Discount = in.Discount
	next.RemainingBalance = pricing.TotalDue(next).Sub(in.Downpayment)
	next.PriceNotes = strings.TrimSpace(in.PriceNotes)
	next.AmountPaid = in.Downpayment
	if in.PaymentMethod != "" {
		next.PaymentMethod = in.PaymentMethod
	}
	if in.Downpayment.IsPositive() {
		next.PaymentStatus = entity.PaymentStatusPartial
	}
	next.ConfirmedAt = &now
	next.ConfirmedBy = actor
	stamp(next, now, actor)
	return next, nil
}

func (e *Engine) Reject(b *entity.Booking, reason, actor string) (*entity.Booking, error) {
	if err := e.check(b, ActionReject); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, entity.NewValidationError("reason", "a rejection reason is required")
	}

	now := e.clock.Now()
	next := b.Clone()
	next.Status = entity.BookingStatusCancelled
	next.RejectionReason = reason
	next.CancelledAt = &now
	next.CancelledBy = actor
	stamp(next, now, actor)
	return next, nil
}

type RescheduleInput struct {
	NewDate entity.Date
	NewTime string
	Reason  string
	Fee     decimal.Decimal
}

// Reschedule moves the event and charges the fee on top of the agreed price.
// Status is unchanged.
func (e *Engine) Reschedule(b *entity.Booking, in RescheduleInput, actor string) (*entity.Booking, error) {
	if err := e.check(b, ActionReschedule); err != nil {
		return nil, err
	}
	if in.NewDate.IsZero() {
		return nil, entity.NewValidationError("new_date", "is required")
	}
	if _, _, err := ParseEventTime(in.NewTime); err != nil {
		return nil, err
	}
	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		return nil, entity.NewValidationError("reason", "a reschedule reason is required")
	}
	if in.Fee.IsNegative() {
		return nil, entity.NewValidationError("fee", "must not be negative")
	}
	if in.NewDate.Equal(b.EventDate) && in.NewTime == b.EventTime {
		return nil, entity.NewValidationError("new_date", "booking is already scheduled for %s %s", in.NewDate, in.NewTime)
	}

	now := e.clock.Now()
	next := b.Clone()
	next.RescheduleHistory = append(next.RescheduleHistory, entity.RescheduleEntry{
		OldDate:   b.EventDate,
		OldTime:   b.EventTime,
		NewDate:   in.NewDate,
		NewTime:   in.NewTime,
		Fee:       in.Fee,
		Reason:    reason,
		Actor:     actor,
		Timestamp: now,
	})
	next.EventDate = in.NewDate
	next.EventTime = in.NewTime
	next.FinalPrice = money.Some(b.AgreedPrice().Add(in.Fee))
	next.RescheduleFee = b.RescheduleFee.Add(in.Fee)
	if b.Status == entity.BookingStatusConfirmed {
		next.RemainingBalance = pricing.TotalDue(next).Sub(next.Downpayment)
	}
	stamp(next, now, actor)
	return next, nil
}

type CompleteInput struct {
	FinalPayment  decimal.NullDecimal
	PaymentMethod string
}

// Complete settles a confirmed booking and produces its Transaction. The
// booking passed in must be the freshly loaded snapshot, since the settlement
// is computed from its downpayment and prices.
func (e *Engine) Complete(b *entity.Booking, in CompleteInput, actor string) (*entity.Booking, *entity.Transaction, error) {
	if err := e.check(b, ActionComplete); err != nil {
		return nil, nil, err
	}

	settlement, err := pricing.Settle(b, in.FinalPayment)
	if err != nil {
		return nil, nil, err
	}

	now := e.clock.Now()
	next := b.Clone()
	next.Status = entity.BookingStatusCompleted
	next.PaymentStatus = entity.PaymentStatusPaid
	next.AmountPaid = settlement.AmountPaid
	next.FinalPayment = settlement.FinalPayment
	next.RemainingBalance = decimal.Zero
	if in.PaymentMethod != "" {
		next.PaymentMethod = in.PaymentMethod
	}
	next.CompletedAt = &now
	next.CompletedBy = actor
	stamp(next, now, actor)

	totalExpenses := next.Expenses.Total()
	txn := &entity.Transaction{
		ID:               e.newID(),
		BookingID:        next.ID,
		Amount:           settlement.AmountPaid,
		Downpayment:      settlement.Downpayment,
		RemainingBalance: settlement.FinalPayment,
		Expenses:         next.Expenses.Items(),
		TotalExpenses:    totalExpenses,
		Profit:           pricing.Profit(settlement.AmountPaid, totalExpenses),
		CompletedAt:      now,
	}
	return next, txn, nil
}

// AssignStaff adds staffID to the booking. Assigning twice is a no-op.
func (e *Engine) AssignStaff(b *entity.Booking, staffID, actor string) (*entity.Booking, error) {
	staffID = strings.TrimSpace(staffID)
	if staffID == "" {
		return nil, entity.NewValidationError("staff_id", "is required")
	}
	next := b.Clone()
	if next.HasStaff(staffID) {
		return next, nil
	}
	next.AssignedStaff = append(next.AssignedStaff, staffID)
	stamp(next, e.clock.Now(), actor)
	return next, nil
}

func (e *Engine) UnassignStaff(b *entity.Booking, staffID, actor string) (*entity.Booking, error) {
	next := b.Clone()
	if !next.HasStaff(staffID) {
		return next, nil
	}
	kept := make([]string, 0, len(next.AssignedStaff)-1)
	for _, id := range next.AssignedStaff {
		if id != staffID {
			kept = append(kept, id)
		}
	}
	next.AssignedStaff = kept
	stamp(next, e.clock.Now(), actor)
	return next, nil
}

type ExpenseInput struct {
	Description string
	Amount      decimal.Decimal
	Category    string
	Date        entity.Date
}

func (in ExpenseInput) validate() error {
	if strings.TrimSpace(in.Description) == "" {
		return entity.NewValidationError("description", "is required")
	}
	if in.Amount.IsNegative() {
		return entity.NewValidationError("amount", "must not be negative")
	}
	return nil
}

// AddExpense appends an itemized expense. A legacy expense total is carried
// over as the first item so the booking's total is preserved.
func (e *Engine) AddExpense(b *entity.Booking, in ExpenseInput, actor string) (*entity.Booking, *entity.ExpenseItem, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	now := e.clock.Now()
	item := entity.ExpenseItem{
		ID:          e.newID().String(),
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    categoryOrDefault(in.Category),
		Date:        in.Date,
	}
	if item.Date.IsZero() {
		item.Date = entity.DateOf(now)
	}

	next := b.Clone()
	next.Expenses = entity.ItemizedExpenses(append(b.Expenses.Items(), item)...)
	stamp(next, now, actor)
	return next, &item, nil
}

func (e *Engine) EditExpense(b *entity.Booking, expenseID string, in ExpenseInput, actor string) (*entity.Booking, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	items := b.Expenses.Items()
	found := false
	for i := range items {
		if items[i].ID != expenseID {
			continue
		}
		items[i].Description = strings.TrimSpace(in.Description)
		items[i].Amount = in.Amount
		items[i].Category = categoryOrDefault(in.Category)
		if !in.Date.IsZero() {
			items[i].Date = in.Date
		}
		found = true
		break
	}
	if !found {
		return nil, entity.NewNotFoundError("expense", expenseID, entity.ErrExpenseNotFound)
	}

	next := b.Clone()
	next.Expenses = entity.ItemizedExpenses(items...)
	stamp(next, e.clock.Now(), actor)
	return next, nil
}

// DeleteExpense removes an item. Deleting an unknown id is a no-op.
func (e *Engine) DeleteExpense(b *entity.Booking, expenseID, actor string) (*entity.Booking, error) {
	items := b.Expenses.Items()
	kept := make([]entity.ExpenseItem, 0, len(items))
	for _, item := range items {
		if item.ID != expenseID {
			kept = append(kept, item)
		}
	}

	next := b.Clone()
	if len(kept) == len(items) {
		return next, nil
	}
	next.Expenses = entity.ItemizedExpenses(kept...)
	stamp(next, e.clock.Now(), actor)
	return next, nil
}

// SetBudget replaces the budget; an unset value clears it.
func (e *Engine) SetBudget(b *entity.Booking, budget decimal.NullDecimal, actor string) (*entity.Booking, error) {
	if budget.Valid && budget.Decimal.IsNegative() {
		return nil, entity.NewValidationError("budget", "must not be negative")
	}
	next := b.Clone()
	next.Budget = budget
	stamp(next, e.clock.Now(), actor)
	return next, nil
}

func (e *Engine) check(b *entity.Booking, a Action) error {
	ok, err := Allowed(a, b.Status)
	if err != nil {
		return entity.NewValidationError("status", "%v", err)
	}
	if !ok {
		return entity.NewTransitionError(string(a), b.Status)
	}
	return nil
}

func stamp(b *entity.Booking, now time.Time, actor string) {
	b.UpdatedAt = now
	b.UpdatedBy = actor
}

func categoryOrDefault(c string) string {
	c = strings.TrimSpace(c)
	if c == "" {
		return "general"
	}
	return c
}

// ParseEventTime validates a 24-hour HH:MM wall-clock time.
func ParseEventTime(s string) (hour, minute int, err error) {
	t, perr := time.Parse("15:04", s)
	if perr != nil {
		return 0, 0, entity.NewValidationError("event_time", "expected HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}

// EventStart is the moment the booked event begins in loc.
func EventStart(b *entity.Booking, loc *time.Location) time.Time {
	h, m, err := ParseEventTime(b.EventTime)
	if err != nil {
		h, m = 0, 0
	}
	return b.EventDate.At(h, m, loc)
}
