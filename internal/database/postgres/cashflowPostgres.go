package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/google/uuid"
)

type cashflowRepository struct {
	db *sql.DB
}

func NewCashflowRepository(db *sql.DB) CashflowRepository {
	return &cashflowRepository{db: db}
}

func (r *cashflowRepository) Create(ctx context.Context, entry *entity.CashflowEntry) error {
	query := `
		INSERT INTO cashflow_entries (id, type, amount, description, category, date, notes, owner_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID,
		entry.Type,
		entry.Amount,
		entry.Description,
		entry.Category,
		entry.Date,
		entry.Notes,
		entry.OwnerID,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create cashflow entry: %w", err)
	}
	return nil
}

func (r *cashflowRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.CashflowEntry, error) {
	query := `
		SELECT id, type, amount, description, category, date, notes, owner_id, created_at
		FROM cashflow_entries
		WHERE id = $1
	`
	entry, err := scanCashflowEntry(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, entity.NewNotFoundError("cashflow entry", id.String(), entity.ErrCashflowEntryNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cashflow entry: %w", err)
	}
	return entry, nil
}

func (r *cashflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM cashflow_entries WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete cashflow entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.NewNotFoundError("cashflow entry", id.String(), entity.ErrCashflowEntryNotFound)
	}
	return nil
}

// List returns entries dated within the inclusive bounds of filter, newest first.
func (r *cashflowRepository) List(ctx context.Context, filter entity.CashflowFilter) ([]*entity.CashflowEntry, error) {
	query := `
		SELECT id, type, amount, description, category, date, notes, owner_id, created_at
		FROM cashflow_entries
		WHERE ($1::text = '' OR type = $1)
		  AND ($2::text = '' OR owner_id = $2)
		  AND ($3::date IS NULL OR date >= $3)
		  AND ($4::date IS NULL OR date <= $4)
		ORDER BY date DESC, created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query,
		string(filter.Type),
		filter.OwnerID,
		dateArg(filter.From),
		dateArg(filter.To),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query cashflow entries: %w", err)
	}
	defer rows.Close()

	entries := make([]*entity.CashflowEntry, 0)
	for rows.Next() {
		entry, err := scanCashflowEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cashflow entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cashflow entries: %w", err)
	}
	return entries, nil
}

func scanCashflowEntry(row rowScanner) (*entity.CashflowEntry, error) {
	var (
		entry entity.CashflowEntry
		notes sql.NullString
	)
	err := row.Scan(
		&entry.ID,
		&entry.Type,
		&entry.Amount,
		&entry.Description,
		&entry.Category,
		&entry.Date,
		&notes,
		&entry.OwnerID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Notes = notes.String
	return &entry, nil
}
