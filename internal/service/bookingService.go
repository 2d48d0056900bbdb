package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	repository "github.com/ds124wfegd/WB_L3/catering/internal/database/postgres"
	cache "github.com/ds124wfegd/WB_L3/catering/internal/database/redis"
	"github.com/ds124wfegd/WB_L3/catering/internal/budget"
	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/lifecycle"
	"github.com/ds124wfegd/WB_L3/catering/internal/metrics"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"
	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// OpenBookingRequest is the booking wizard submission.
type OpenBookingRequest struct {
	OwnerID     string                    `json:"owner_id" binding:"required"`
	EventType   string                    `json:"event_type" binding:"required"`
	PackageID   string                    `json:"package_id"`
	ServiceType entity.ServiceType        `json:"service_type" binding:"required,servicetype"`
	GuestCount  int                       `json:"guest_count" binding:"min=0"`
	FoodItemIDs []string                  `json:"food_item_ids"`
	Services    []entity.ServiceSelection `json:"services"`
	EventDate   entity.Date               `json:"event_date"`
	EventTime   string                    `json:"event_time" binding:"required,hhmm"`
	Location    entity.Location           `json:"location"`
	Budget      decimal.NullDecimal       `json:"budget" binding:"omitempty,money"`
}

func (r *OpenBookingRequest) Selection() pricing.Selection {
	return pricing.Selection{
		PackageID:   r.PackageID,
		ServiceType: r.ServiceType,
		GuestCount:  r.GuestCount,
		FoodItemIDs: r.FoodItemIDs,
		Services:    r.Services,
	}
}

type ConfirmBookingRequest struct {
	FinalPrice    decimal.NullDecimal `json:"final_price" binding:"omitempty,money"`
	Downpayment   decimal.Decimal     `json:"downpayment" binding:"money"`
	Discount      decimal.Decimal     `json:"discount" binding:"money"`
	PriceNotes    string              `json:"price_notes" binding:"max=1000"`
	PaymentMethod string              `json:"payment_method" binding:"max=50"`
}

type RejectBookingRequest struct {
	Reason string `json:"reason" binding:"required,max=1000"`
}

type RescheduleBookingRequest struct {
	NewDate entity.Date     `json:"new_date"`
	NewTime string          `json:"new_time" binding:"required,hhmm"`
	Reason  string          `json:"reason" binding:"required,max=1000"`
	Fee     decimal.Decimal `json:"fee" binding:"money"`
}

type CompleteBookingRequest struct {
	FinalPayment  decimal.NullDecimal `json:"final_payment" binding:"omitempty,money"`
	PaymentMethod string              `json:"payment_method" binding:"max=50"`
}

type ExpenseRequest struct {
	Description string          `json:"description" binding:"required,max=255"`
	Amount      decimal.Decimal `json:"amount" binding:"money"`
	Category    string          `json:"category" binding:"max=100"`
	Date        entity.Date     `json:"date"`
}

func (r *ExpenseRequest) input() lifecycle.ExpenseInput {
	return lifecycle.ExpenseInput{
		Description: r.Description,
		Amount:      r.Amount,
		Category:    r.Category,
		Date:        r.Date,
	}
}

type StaffRequest struct {
	StaffID string `json:"staff_id" binding:"required,max=100"`
}

type BudgetRequest struct {
	Budget decimal.NullDecimal `json:"budget" binding:"omitempty,money"`
}

// BookingOptions tunes the background tasks scheduled by booking operations.
type BookingOptions struct {
	ReminderLead time.Duration
	Location     *time.Location
}

type bookingService struct {
	bookingRepo     repository.BookingRepository
	transactionRepo repository.TransactionRepository
	catalogRepo     repository.CatalogRepository
	rollups         queue.RollupInvalidator
	engine          *lifecycle.Engine
	clock           lifecycle.Clock
	queue           TaskPublisher
	opts            BookingOptions
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	transactionRepo repository.TransactionRepository,
	catalogRepo repository.CatalogRepository,
	rollups queue.RollupInvalidator,
	clock lifecycle.Clock,
	publisher TaskPublisher,
	opts BookingOptions,
) BookingService {
	if rollups == nil {
		rollups = cache.NopRollupCache{}
	}
	if clock == nil {
		clock = lifecycle.SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &bookingService{
		bookingRepo:     bookingRepo,
		transactionRepo: transactionRepo,
		catalogRepo:     catalogRepo,
		rollups:         rollups,
		engine:          lifecycle.NewEngine(clock),
		clock:           clock,
		queue:           publisher,
		opts:            opts,
	}
}

func (s *bookingService) Estimate(ctx context.Context, sel pricing.Selection) (pricing.Breakdown, error) {
	if err := sel.Validate(); err != nil {
		return pricing.Breakdown{}, err
	}
	catalog, err := s.priceList(ctx, sel)
	if err != nil {
		return pricing.Breakdown{}, err
	}
	return pricing.Estimate(sel, catalog), nil
}

func (s *bookingService) OpenBooking(ctx context.Context, req *OpenBookingRequest, actor string) (*entity.Booking, pricing.Breakdown, error) {
	sel := req.Selection()
	catalog, err := s.priceList(ctx, sel)
	if err != nil {
		return nil, pricing.Breakdown{}, err
	}

	booking, estimate, err := s.engine.Open(lifecycle.OpenInput{
		OwnerID:   req.OwnerID,
		CreatedBy: actor,
		EventType: req.EventType,
		Selection: sel,
		EventDate: req.EventDate,
		EventTime: req.EventTime,
		Location:  req.Location,
		Budget:    req.Budget,
	}, catalog)
	if err != nil {
		metrics.Transitions.WithLabelValues("open", metrics.Outcome(err)).Inc()
		return nil, pricing.Breakdown{}, err
	}

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		metrics.Transitions.WithLabelValues("open", metrics.Outcome(err)).Inc()
		return nil, pricing.Breakdown{}, fmt.Errorf("failed to create booking: %w", err)
	}
	metrics.Transitions.WithLabelValues("open", metrics.Outcome(nil)).Inc()

	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"owner_id":   booking.OwnerID,
		"actor":      actor,
		"total":      booking.TotalPrice.StringFixed(2),
		"missing":    len(estimate.Missing),
	}).Info("Booking opened")
	return booking, estimate, nil
}

func (s *bookingService) GetBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *bookingService) ListBookings(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	if filter.Limit <= 0 || filter.Limit > 500 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return s.bookingRepo.List(ctx, filter)
}

func (s *bookingService) GetTransaction(ctx context.Context, bookingID uuid.UUID) (*entity.Transaction, error) {
	return s.transactionRepo.GetByBookingID(ctx, bookingID)
}

func (s *bookingService) GetBudgetHealth(ctx context.Context, id uuid.UUID) (entity.BudgetHealth, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return entity.BudgetHealth{}, err
	}
	return budget.ForBooking(booking), nil
}

func (s *bookingService) ConfirmBooking(ctx context.Context, id uuid.UUID, req *ConfirmBookingRequest, actor string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, id, "confirm", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.Confirm(b, lifecycle.ConfirmInput{
			FinalPrice:    req.FinalPrice,
			Downpayment:   req.Downpayment,
			Discount:      req.Discount,
			PriceNotes:    req.PriceNotes,
			PaymentMethod: req.PaymentMethod,
		}, actor)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.statusTask(booking, actor, ""))
	s.publish(ctx, s.reminderTask(booking))
	return booking, nil
}

func (s *bookingService) RejectBooking(ctx context.Context, id uuid.UUID, reason, actor string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, id, "reject", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.Reject(b, reason, actor)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.statusTask(booking, actor, booking.RejectionReason))
	return booking, nil
}

func (s *bookingService) RescheduleBooking(ctx context.Context, id uuid.UUID, req *RescheduleBookingRequest, actor string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, id, "reschedule", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.Reschedule(b, lifecycle.RescheduleInput{
			NewDate: req.NewDate,
			NewTime: req.NewTime,
			Reason:  req.Reason,
			Fee:     req.Fee,
		}, actor)
	})
	if err != nil {
		return nil, err
	}

	// the reminder queued at confirmation now points at the old slot and will skip itself
	if booking.Status == entity.BookingStatusConfirmed {
		s.publish(ctx, s.reminderTask(booking))
	}
	return booking, nil
}

// CompleteBooking settles against the booking as stored right now and writes
// the booking and its Transaction together.
func (s *bookingService) CompleteBooking(ctx context.Context, id uuid.UUID, req *CompleteBookingRequest, actor string) (*entity.Booking, *entity.Transaction, error) {
	booking, txn, err := s.complete(ctx, id, req, actor)
	metrics.Transitions.WithLabelValues("complete", metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, nil, err
	}

	metrics.SettledAmount.Add(txn.Amount.InexactFloat64())
	logrus.WithFields(logrus.Fields{
		"booking_id":     booking.ID,
		"transaction_id": txn.ID,
		"actor":          actor,
		"amount":         txn.Amount.StringFixed(2),
		"profit":         txn.Profit.StringFixed(2),
	}).Info("Booking completed")

	// the next monthly report read must include this transaction
	if err := s.rollups.Invalidate(ctx); err != nil {
		logrus.WithError(err).WithField("booking_id", booking.ID).Error("Failed to invalidate monthly rollup cache")
	}

	s.publish(ctx, &Task{
		ID:   fmt.Sprintf("transaction_recorded_%s", txn.ID),
		Type: TaskTypeTransactionRecorded,
		Data: map[string]interface{}{
			queue.DataBookingID:     booking.ID.String(),
			queue.DataTransactionID: txn.ID.String(),
			queue.DataAmount:        txn.Amount.StringFixed(2),
			queue.DataProfit:        txn.Profit.StringFixed(2),
			queue.DataCompletedAt:   txn.CompletedAt.Format(time.RFC3339),
		},
	})
	return booking, txn, nil
}

func (s *bookingService) complete(ctx context.Context, id uuid.UUID, req *CompleteBookingRequest, actor string) (*entity.Booking, *entity.Transaction, error) {
	current, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	next, txn, err := s.engine.Complete(current, lifecycle.CompleteInput{
		FinalPayment:  req.FinalPayment,
		PaymentMethod: req.PaymentMethod,
	}, actor)
	if err != nil {
		var mismatch *entity.PaymentMismatchError
		if errors.As(err, &mismatch) {
			logrus.WithFields(logrus.Fields{
				"booking_id": id,
				"expected":   mismatch.Expected.StringFixed(2),
				"actual":     mismatch.Actual.StringFixed(2),
			}).Warn("Settlement rejected")
		}
		return nil, nil, err
	}

	if err := s.bookingRepo.Complete(ctx, next, txn); err != nil {
		if errors.Is(err, entity.ErrTransactionExists) || errors.Is(err, entity.ErrConcurrentUpdate) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("failed to complete booking %s: %w", id, err)
	}
	return next, txn, nil
}

func (s *bookingService) AssignStaff(ctx context.Context, id uuid.UUID, staffID, actor string) (*entity.Booking, error) {
	return s.mutate(ctx, id, "assign_staff", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.AssignStaff(b, staffID, actor)
	})
}

func (s *bookingService) UnassignStaff(ctx context.Context, id uuid.UUID, staffID, actor string) (*entity.Booking, error) {
	return s.mutate(ctx, id, "unassign_staff", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.UnassignStaff(b, staffID, actor)
	})
}

func (s *bookingService) AddExpense(ctx context.Context, id uuid.UUID, req *ExpenseRequest, actor string) (*entity.Booking, *entity.ExpenseItem, error) {
	var item *entity.ExpenseItem
	booking, err := s.mutate(ctx, id, "add_expense", actor, func(b *entity.Booking) (*entity.Booking, error) {
		next, added, err := s.engine.AddExpense(b, req.input(), actor)
		item = added
		return next, err
	})
	if err != nil {
		return nil, nil, err
	}
	s.warnBudget(booking)
	return booking, item, nil
}

func (s *bookingService) EditExpense(ctx context.Context, id uuid.UUID, expenseID string, req *ExpenseRequest, actor string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, id, "edit_expense", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.EditExpense(b, expenseID, req.input(), actor)
	})
	if err != nil {
		return nil, err
	}
	s.warnBudget(booking)
	return booking, nil
}

func (s *bookingService) DeleteExpense(ctx context.Context, id uuid.UUID, expenseID, actor string) (*entity.Booking, error) {
	return s.mutate(ctx, id, "delete_expense", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.DeleteExpense(b, expenseID, actor)
	})
}

func (s *bookingService) SetBudget(ctx context.Context, id uuid.UUID, amount decimal.NullDecimal, actor string) (*entity.Booking, error) {
	booking, err := s.mutate(ctx, id, "set_budget", actor, func(b *entity.Booking) (*entity.Booking, error) {
		return s.engine.SetBudget(b, amount, actor)
	})
	if err != nil {
		return nil, err
	}
	s.warnBudget(booking)
	return booking, nil
}

func (s *bookingService) AwaitingSettlement(ctx context.Context, today entity.Date) ([]*entity.Booking, *entity.BookingSummary, error) {
	bookings, err := s.bookingRepo.ListAwaitingSettlement(ctx, today)
	if err != nil {
		return nil, nil, err
	}
	summary, err := s.bookingRepo.Summary(ctx, today)
	if err != nil {
		return nil, nil, err
	}
	return bookings, summary, nil
}

// mutate loads the current snapshot, applies one engine operation and saves
// the result under the loaded version.
func (s *bookingService) mutate(ctx context.Context, id uuid.UUID, action, actor string, apply func(*entity.Booking) (*entity.Booking, error)) (*entity.Booking, error) {
	booking, err := s.applyAndSave(ctx, id, apply)
	metrics.Transitions.WithLabelValues(action, metrics.Outcome(err)).Inc()

	log := logrus.WithFields(logrus.Fields{
		"booking_id": id,
		"action":     action,
		"actor":      actor,
	})
	if err != nil {
		log.WithError(err).Debug("Booking operation rejected")
		return nil, err
	}
	log.WithField("status", booking.Status).Info("Booking updated")
	return booking, nil
}

func (s *bookingService) applyAndSave(ctx context.Context, id uuid.UUID, apply func(*entity.Booking) (*entity.Booking, error)) (*entity.Booking, error) {
	current, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := apply(current)
	if err != nil {
		return nil, err
	}
	if err := s.bookingRepo.Save(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func (s *bookingService) priceList(ctx context.Context, sel pricing.Selection) (*pricing.PriceList, error) {
	items, err := s.catalogRepo.GetByIDs(ctx, sel.CatalogIDs())
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return pricing.NewPriceList(items), nil
}

func (s *bookingService) warnBudget(b *entity.Booking) {
	health := budget.ForBooking(b)
	if health.NeedsAttention() {
		logrus.WithFields(logrus.Fields{
			"booking_id": b.ID,
			"status":     health.Status,
		}).Warn(health.String())
	}
}

func (s *bookingService) statusTask(b *entity.Booking, actor, reason string) *Task {
	data := map[string]interface{}{
		queue.DataBookingID: b.ID.String(),
		queue.DataStatus:    string(b.Status),
		queue.DataActor:     actor,
	}
	if reason != "" {
		data[queue.DataReason] = reason
	}
	return &Task{
		ID:   fmt.Sprintf("status_%s_%s_%d", b.ID, b.Status, b.Version),
		Type: TaskTypeStatusNotification,
		Data: data,
	}
}

// reminderTask fires reminder_lead before the event starts. Events already
// inside that window get no reminder.
func (s *bookingService) reminderTask(b *entity.Booking) *Task {
	if s.opts.ReminderLead <= 0 {
		return nil
	}
	at := lifecycle.EventStart(b, s.opts.Location).Add(-s.opts.ReminderLead)
	if !at.After(s.clock.Now()) {
		return nil
	}
	return &Task{
		ID:   fmt.Sprintf("reminder_%s_%d", b.ID, b.Version),
		Type: TaskTypeEventReminder,
		Data: map[string]interface{}{
			queue.DataBookingID: b.ID.String(),
			queue.DataEventDate: b.EventDate.String(),
			queue.DataEventTime: b.EventTime,
		},
		ExecuteAt: at,
	}
}

// publish never fails the operation that produced the task.
func (s *bookingService) publish(ctx context.Context, task *Task) {
	if s.queue == nil || task == nil {
		return
	}
	if err := s.queue.Publish(ctx, task); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"task_id":   task.ID,
			"task_type": task.Type,
		}).Warn("Failed to publish task")
	}
}
