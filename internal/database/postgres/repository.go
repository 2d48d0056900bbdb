package repository

import (
	"context"
	"time"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/google/uuid"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)

	// Save writes the snapshot only if the stored version still equals
	// booking.Version, then bumps booking.Version.
	Save(ctx context.Context, booking *entity.Booking) error
	// Complete saves the completed booking and inserts its transaction atomically.
	Complete(ctx context.Context, booking *entity.Booking, txn *entity.Transaction) error

	List(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error)
	ListAwaitingSettlement(ctx context.Context, before entity.Date) ([]*entity.Booking, error)
	Summary(ctx context.Context, today entity.Date) (*entity.BookingSummary, error)
}

type TransactionRepository interface {
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Transaction, error)
	List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error)
}

type CashflowRepository interface {
	Create(ctx context.Context, entry *entity.CashflowEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CashflowEntry, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter entity.CashflowFilter) ([]*entity.CashflowEntry, error)
}

type CatalogRepository interface {
	Upsert(ctx context.Context, item *entity.CatalogItem) error
	Delete(ctx context.Context, id string) error
	GetAll(ctx context.Context) ([]*entity.CatalogItem, error)
	GetByIDs(ctx context.Context, ids []string) ([]*entity.CatalogItem, error)
}

// timeRange turns optional bounds into query args, open ends become nil.
func timeRange(from, to *time.Time) (interface{}, interface{}) {
	var f, t interface{}
	if from != nil {
		f = *from
	}
	if to != nil {
		t = *to
	}
	return f, t
}

func dateArg(d *entity.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}
