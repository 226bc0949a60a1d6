package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"rechnerei/internal/core"
)

func (r *Repository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO projects (customer_id, name, description) VALUES (?, ?, ?)`,
		p.CustomerID, p.Name, p.Description)
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Project{}, fmt.Errorf("project insert id: %w", err)
	}

	slog.InfoContext(ctx, "Project created", "id", id, "name", p.Name, "customer_id", p.CustomerID)
	return r.GetProject(ctx, id)
}

func (r *Repository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	var p core.Project
	var createdAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT p.id, p.customer_id, c.name, p.name, p.description, p.created_at
		 FROM projects p JOIN customers c ON c.id = p.customer_id
		 WHERE p.id = ?`, id).
		Scan(&p.ID, &p.CustomerID, &p.CustomerName, &p.Name, &p.Description, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (r *Repository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT p.id, p.customer_id, c.name, p.name, p.description, p.created_at
		 FROM projects p JOIN customers c ON c.id = p.customer_id
		 ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	for rows.Next() {
		var p core.Project
		var createdAt string
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.CustomerName, &p.Name, &p.Description, &createdAt); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		p.CreatedAt = parseTime(createdAt)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

func (r *Repository) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE projects SET customer_id = ?, name = ?, description = ? WHERE id = ?`,
		p.CustomerID, p.Name, p.Description, p.ID)
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Project{}, fmt.Errorf("project %d: %w", p.ID, ErrNotFound)
	}
	return r.GetProject(ctx, p.ID)
}

func (r *Repository) DeleteProject(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("project %d: %w", id, ErrNotFound)
	}
	slog.InfoContext(ctx, "Project deleted", "id", id)
	return nil
}
