package service

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"
	"github.com/ds124wfegd/WB_L3/catering/internal/pricing"
	"github.com/ds124wfegd/WB_L3/catering/pkg/queue"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingService drives a booking through its financial lifecycle.
type BookingService interface {
	// Wizard
	Estimate(ctx context.Context, sel pricing.Selection) (pricing.Breakdown, error)
	OpenBooking(ctx context.Context, req *OpenBookingRequest, actor string) (*entity.Booking, pricing.Breakdown, error)

	// Reads
	GetBooking(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	ListBookings(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error)
	GetTransaction(ctx context.Context, bookingID uuid.UUID) (*entity.Transaction, error)
	GetBudgetHealth(ctx context.Context, id uuid.UUID) (entity.BudgetHealth, error)

	// Status transitions
	ConfirmBooking(ctx context.Context, id uuid.UUID, req *ConfirmBookingRequest, actor string) (*entity.Booking, error)
	RejectBooking(ctx context.Context, id uuid.UUID, reason, actor string) (*entity.Booking, error)
	RescheduleBooking(ctx context.Context, id uuid.UUID, req *RescheduleBookingRequest, actor string) (*entity.Booking, error)
	CompleteBooking(ctx context.Context, id uuid.UUID, req *CompleteBookingRequest, actor string) (*entity.Booking, *entity.Transaction, error)

	// Edits allowed in any status
	AssignStaff(ctx context.Context, id uuid.UUID, staffID, actor string) (*entity.Booking, error)
	UnassignStaff(ctx context.Context, id uuid.UUID, staffID, actor string) (*entity.Booking, error)
	AddExpense(ctx context.Context, id uuid.UUID, req *ExpenseRequest, actor string) (*entity.Booking, *entity.ExpenseItem, error)
	EditExpense(ctx context.Context, id uuid.UUID, expenseID string, req *ExpenseRequest, actor string) (*entity.Booking, error)
	DeleteExpense(ctx context.Context, id uuid.UUID, expenseID, actor string) (*entity.Booking, error)
	SetBudget(ctx context.Context, id uuid.UUID, budget decimal.NullDecimal, actor string) (*entity.Booking, error)

	// Settlement sweep
	AwaitingSettlement(ctx context.Context, today entity.Date) ([]*entity.Booking, *entity.BookingSummary, error)
}

// CashflowService builds the period ledger and the monthly rollup report.
type CashflowService interface {
	Ledger(ctx context.Context, month string, filter entity.LedgerFilter) (*entity.PeriodLedger, error)
	MonthlyRollup(ctx context.Context) ([]entity.MonthlyRollup, error)
	RefreshRollup(ctx context.Context) ([]entity.MonthlyRollup, error)

	CreateEntry(ctx context.Context, req *CashflowEntryRequest, actor string) (*entity.CashflowEntry, error)
	ListEntries(ctx context.Context, filter entity.CashflowFilter) ([]*entity.CashflowEntry, error)
	DeleteEntry(ctx context.Context, id uuid.UUID) error
}

type CatalogService interface {
	GetAll(ctx context.Context) ([]*entity.CatalogItem, error)
	Upsert(ctx context.Context, id string, req *CatalogItemRequest) (*entity.CatalogItem, error)
	Delete(ctx context.Context, id string) error
}

// TaskPublisher publishes background tasks. A nil publisher disables them.
type TaskPublisher interface {
	Publish(ctx context.Context, task *Task) error
}

// Task is a unit of background work handed to the queue.
type Task struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	ExecuteAt  time.Time              `json:"execute_at"`
	MaxRetries int                    `json:"max_retries"`
}

const (
	TaskTypeTransactionRecorded = string(queue.TaskTypeTransactionRecorded)
	TaskTypeEventReminder       = string(queue.TaskTypeEventReminder)
	TaskTypeStatusNotification  = string(queue.TaskTypeStatusNotification)
)
