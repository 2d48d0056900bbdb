package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ds124wfegd/WB_L3/catering/internal/entity"

	"github.com/lib/pq"
)

type catalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) Upsert(ctx context.Context, item *entity.CatalogItem) error {
	query := `
		INSERT INTO catalog_items (id, kind, name, price, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET kind = EXCLUDED.kind, name = EXCLUDED.name,
		    price = EXCLUDED.price, updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.Kind, item.Name, item.Price, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert catalog item: %w", err)
	}
	return nil
}

func (r *catalogRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete catalog item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return entity.NewNotFoundError("catalog item", id, entity.ErrCatalogItemNotFound)
	}
	return nil
}

func (r *catalogRepository) GetAll(ctx context.Context) ([]*entity.CatalogItem, error) {
	query := `SELECT id, kind, name, price, updated_at FROM catalog_items ORDER BY kind, name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

// GetByIDs returns the items that exist; unknown ids are skipped.
func (r *catalogRepository) GetByIDs(ctx context.Context, ids []string) ([]*entity.CatalogItem, error) {
	if len(ids) == 0 {
		return []*entity.CatalogItem{}, nil
	}

	query := `SELECT id, kind, name, price, updated_at FROM catalog_items WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer rows.Close()

	return scanCatalogItems(rows)
}

func scanCatalogItems(rows *sql.Rows) ([]*entity.CatalogItem, error) {
	items := make([]*entity.CatalogItem, 0)
	for rows.Next() {
		var item entity.CatalogItem
		if err := rows.Scan(&item.ID, &item.Kind, &item.Name, &item.Price, &item.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating catalog items: %w", err)
	}
	return items, nil
}
