package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"rechnerei/internal/core"
)

func (r *Repository) CreateCatalogItem(ctx context.Context, ci core.CatalogItem) (core.CatalogItem, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO catalog_items (name, unit, price_cents) VALUES (?, ?, ?)`,
		ci.Name, ci.Unit, ci.Price.Cents)
	if err != nil {
		return core.CatalogItem{}, fmt.Errorf("create catalog item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.CatalogItem{}, fmt.Errorf("catalog item insert id: %w", err)
	}

	slog.InfoContext(ctx, "Catalog item created", "id", id, "name", ci.Name, "price_cents", ci.Price.Cents)
	return r.GetCatalogItem(ctx, id)
}

func (r *Repository) GetCatalogItem(ctx context.Context, id int64) (core.CatalogItem, error) {
	var ci core.CatalogItem
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, unit, price_cents, created_at FROM catalog_items WHERE id = ?`, id).
		Scan(&ci.ID, &ci.Name, &ci.Unit, &ci.Price.Cents, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CatalogItem{}, fmt.Errorf("catalog item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.CatalogItem{}, fmt.Errorf("get catalog item: %w", err)
	}
	ci.CreatedAt = parseTime(createdAt)
	return ci, nil
}

func (r *Repository) ListCatalogItems(ctx context.Context) ([]core.CatalogItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, unit, price_cents, created_at FROM catalog_items ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list catalog items: %w", err)
	}
	defer rows.Close()

	var items []core.CatalogItem
	for rows.Next() {
		var ci core.CatalogItem
		var createdAt string
		if err := rows.Scan(&ci.ID, &ci.Name, &ci.Unit, &ci.Price.Cents, &createdAt); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		ci.CreatedAt = parseTime(createdAt)
		items = append(items, ci)
	}
	return items, rows.Err()
}

func (r *Repository) UpdateCatalogItem(ctx context.Context, ci core.CatalogItem) (core.CatalogItem, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE catalog_items SET name = ?, unit = ?, price_cents = ? WHERE id = ?`,
		ci.Name, ci.Unit, ci.Price.Cents, ci.ID)
	if err != nil {
		return core.CatalogItem{}, fmt.Errorf("update catalog item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.CatalogItem{}, fmt.Errorf("catalog item %d: %w", ci.ID, ErrNotFound)
	}
	return r.GetCatalogItem(ctx, ci.ID)
}

func (r *Repository) DeleteCatalogItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM catalog_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete catalog item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("catalog item %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Catalog item deleted", "id", id)
	return nil
}
