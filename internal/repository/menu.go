package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"capypay/internal/model"
)

// MenuRepo reads cafeteria menu items. Stock and sales mutations happen
// only inside the order settlement transaction in OrderRepo.
type MenuRepo struct {
	db *pgxpool.Pool
}

func NewMenuRepo(db *pgxpool.Pool) *MenuRepo {
	return &MenuRepo{db: db}
}

const menuItemColumns = `id, name, COALESCE(description, ''), COALESCE(category, ''), price,
	stock, is_available, is_featured, COALESCE(image_url, ''), sales`

func scanMenuItem(row pgx.Row) (*model.MenuItem, error) {
	var m model.MenuItem
	err := row.Scan(&m.ID, &m.Name, &m.Description, &m.Category, &m.Price,
		&m.Stock, &m.Available, &m.Featured, &m.ImageURL, &m.Sales)
	if err != nil {
		return nil, fmt.Errorf("scan menu item: %w", err)
	}
	return &m, nil
}

// ListAvailable returns available items, optionally filtered by category.
func (r *MenuRepo) ListAvailable(ctx context.Context, category string) ([]model.MenuItem, error) {
	query := `SELECT ` + menuItemColumns + ` FROM menu_items WHERE is_available`
	args := []any{}
	if category != "" {
		query += ` AND category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY is_featured DESC, name`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list menu: %w", err)
	}
	defer rows.Close()

	var out []model.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetByIDs returns the requested items; absent ids are simply missing
// from the result, the caller decides whether that is an error.
func (r *MenuRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MenuItem, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+menuItemColumns+` FROM menu_items WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("get menu items: %w", err)
	}
	defer rows.Close()

	var out []model.MenuItem
	for rows.Next() {
		m, err := scanMenuItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}
