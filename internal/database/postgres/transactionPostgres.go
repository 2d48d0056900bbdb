package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/google/uuid"
)

type transactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `
	id, booking_id, amount, downpayment, remaining_balance,
	expenses, total_expenses, profit, completed_at
`

func (r *transactionRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*entity.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE booking_id = $1`

	txn, err := scanTransaction(r.db.QueryRowContext(ctx, query, bookingID))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFoundError("transaction for booking", bookingID.String(), entity.ErrTransactionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

// List returns transactions completed in [From, To), newest first.
func (r *transactionRepository) List(ctx context.Context, filter entity.TransactionFilter) ([]*entity.Transaction, error) {
	from, to := timeRange(filter.From, filter.To)
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE ($1::timestamptz IS NULL OR completed_at >= $1)
		  AND ($2::timestamptz IS NULL OR completed_at < $2)
		ORDER BY completed_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	txns := make([]*entity.Transaction, 0)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*entity.Transaction, error) {
	var (
		txn      entity.Transaction
		expenses []byte
	)
	err := row.Scan(
		&txn.ID,
		&txn.BookingID,
		&txn.Amount,
		&txn.Downpayment,
		&txn.RemainingBalance,
		&expenses,
		&txn.TotalExpenses,
		&txn.Profit,
		&txn.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.Expenses = make([]entity.ExpenseItem, 0)
	if len(expenses) > 0 {
		if err := json.Unmarshal(expenses, &txn.Expenses); err != nil {
			return nil, fmt.Errorf("failed to decode transaction expenses: %w", err)
		}
	}
	return &txn, nil
}
