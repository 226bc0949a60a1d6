package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"rechnerei/internal/core"
)

func (r *Repository) CreateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone, address, note) VALUES (?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Phone, c.Address, c.Note)
	if err != nil {
		return core.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Customer{}, fmt.Errorf("customer insert id: %w", err)
	}

	slog.InfoContext(ctx, "Customer created", "id", id, "name", c.Name)
	return r.GetCustomer(ctx, id)
}

func (r *Repository) GetCustomer(ctx context.Context, id int64) (core.Customer, error) {
	var c core.Customer
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email, phone, address, note, created_at FROM customers WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Note, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Customer{}, fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Customer{}, fmt.Errorf("get customer: %w", err)
	}
	c.CreatedAt = parseTime(createdAt)
	return c, nil
}

func (r *Repository) ListCustomers(ctx context.Context) ([]core.Customer, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, email, phone, address, note, created_at FROM customers ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	defer rows.Close()

	var customers []core.Customer
	for rows.Next() {
		var c core.Customer
		var createdAt string
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.Note, &createdAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.CreatedAt = parseTime(createdAt)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *Repository) UpdateCustomer(ctx context.Context, c core.Customer) (core.Customer, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, email = ?, phone = ?, address = ?, note = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.Address, c.Note, c.ID)
	if err != nil {
		return core.Customer{}, fmt.Errorf("update customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Customer{}, fmt.Errorf("customer %d: %w", c.ID, ErrNotFound)
	}
	return r.GetCustomer(ctx, c.ID)
}

func (r *Repository) DeleteCustomer(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("customer %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Customer deleted", "id", id)
	return nil
}
