package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(db *sql.DB) BookingRepository {
	return &bookingRepository{db: db}
}

// Create inserts a new booking document at version 1.
func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	snapshot := *booking
	snapshot.Version = 1
	doc, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	query := `
		INSERT INTO bookings (id, owner_id, status, event_date, doc, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.db.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.OwnerID,
		snapshot.Status,
		snapshot.EventDate,
		doc,
		snapshot.Version,
		snapshot.CreatedAt,
		snapshot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	booking.Version = snapshot.Version
	return nil
}

func (r *bookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	query := `SELECT doc, version FROM bookings WHERE id = $1`

	booking, err := scanBooking(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFoundError("booking", id.String(), entity.ErrBookingNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return booking, nil
}

func (r *bookingRepository) Save(ctx context.Context, booking *entity.Booking) error {
	return r.save(ctx, r.db, booking)
}

func (r *bookingRepository) Complete(ctx context.Context, booking *entity.Booking, txn *entity.Transaction) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelReadCommitted,
	})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	version := booking.Version
	if err := r.save(ctx, tx, booking); err != nil {
		return err
	}

	expenses, err := json.Marshal(txn.Expenses)
	if err != nil {
		booking.Version = version
		return fmt.Errorf("failed to encode transaction expenses: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, booking_id, amount, downpayment, remaining_balance,
			expenses, total_expenses, profit, completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = tx.ExecContext(ctx, query,
		txn.ID,
		txn.BookingID,
		txn.Amount,
		txn.Downpayment,
		txn.RemainingBalance,
		expenses,
		txn.TotalExpenses,
		txn.Profit,
		txn.CompletedAt,
	)
	if err != nil {
		booking.Version = version
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return entity.ErrTransactionExists
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	if err := tx.Commit(); err != nil {
		booking.Version = version
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (r *bookingRepository) save(ctx context.Context, db execer, booking *entity.Booking) error {
	snapshot := *booking
	snapshot.Version = booking.Version + 1
	doc, err := json.Marshal(&snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode booking: %w", err)
	}

	query := `
		UPDATE bookings
		SET owner_id = $1, status = $2, event_date = $3, doc = $4,
		    version = version + 1, updated_at = $5
		WHERE id = $6 AND version = $7
	`
	result, err := db.ExecContext(ctx, query,
		snapshot.OwnerID,
		snapshot.Status,
		snapshot.EventDate,
		doc,
		snapshot.UpdatedAt,
		snapshot.ID,
		booking.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update booking: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, booking.ID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check booking: %w", err)
		}
		if !exists {
			return entity.NewNotFoundError("booking", booking.ID.String(), entity.ErrBookingNotFound)
		}
		return &entity.ConcurrencyConflictError{BookingID: booking.ID.String(), Version: booking.Version}
	}

	booking.Version = snapshot.Version
	return nil
}

func (r *bookingRepository) List(ctx context.Context, filter entity.BookingFilter) ([]*entity.Booking, error) {
	statuses := make([]string, 0, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses = append(statuses, string(s))
	}

	var limit interface{}
	if filter.Limit > 0 {
		limit = filter.Limit
	}

	query := `
		SELECT doc, version
		FROM bookings
		WHERE (cardinality($1::text[]) = 0 OR status = ANY($1))
		  AND ($2::text = '' OR owner_id = $2)
		  AND ($3::date IS NULL OR event_date >= $3)
		  AND ($4::date IS NULL OR event_date <= $4)
		ORDER BY event_date DESC, created_at DESC
		LIMIT $5 OFFSET $6
	`
	rows, err := r.db.QueryContext(ctx, query,
		pq.Array(statuses),
		filter.OwnerID,
		dateArg(filter.EventFrom),
		dateArg(filter.EventTo),
		limit,
		filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

// ListAwaitingSettlement returns confirmed bookings whose event day is before the given day.
func (r *bookingRepository) ListAwaitingSettlement(ctx context.Context, before entity.Date) ([]*entity.Booking, error) {
	query := `
		SELECT doc, version
		FROM bookings
		WHERE status = 'confirmed' AND event_date < $1
		ORDER BY event_date ASC
	`
	rows, err := r.db.QueryContext(ctx, query, before.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings awaiting settlement: %w", err)
	}
	defer rows.Close()

	return scanBookings(rows)
}

func (r *bookingRepository) Summary(ctx context.Context, today entity.Date) (*entity.BookingSummary, error) {
	query := `
		SELECT
			status,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'confirmed' AND event_date < $1),
			COALESCE(SUM((doc->>'remaining_balance')::numeric) FILTER (WHERE status = 'confirmed'), 0)
		FROM bookings
		GROUP BY status
	`
	rows, err := r.db.QueryContext(ctx, query, today.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query booking summary: %w", err)
	}
	defer rows.Close()

	summary := &entity.BookingSummary{
		ByStatus:         make(map[entity.BookingStatus]int),
		OutstandingTotal: decimal.Zero,
	}
	for rows.Next() {
		var (
			status      entity.BookingStatus
			count       int
			awaiting    int
			outstanding decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &awaiting, &outstanding); err != nil {
			return nil, fmt.Errorf("failed to scan booking summary: %w", err)
		}
		summary.ByStatus[status] = count
		summary.AwaitingSettle += awaiting
		summary.OutstandingTotal = summary.OutstandingTotal.Add(outstanding)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating booking summary: %w", err)
	}
	return summary, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*entity.Booking, error) {
	var (
		doc     []byte
		version int64
	)
	if err := row.Scan(&doc, &version); err != nil {
		return nil, err
	}

	var booking entity.Booking
	if err := json.Unmarshal(doc, &booking); err != nil {
		return nil, fmt.Errorf("failed to decode booking: %w", err)
	}
	// a stored status outside the lifecycle is corrupt data, not bad input
	if _, err := entity.ParseBookingStatus(string(booking.Status)); err != nil {
		return nil, fmt.Errorf("booking %s: %v", booking.ID, err)
	}
	booking.Version = version
	return &booking, nil
}

func scanBookings(rows *sql.Rows) ([]*entity.Booking, error) {
	bookings := make([]*entity.Booking, 0)
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating bookings: %w", err)
	}
	return bookings, nil
}
