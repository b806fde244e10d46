package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"capypay/internal/model"
)

type ContactRepo struct {
	db *pgxpool.Pool
}

func NewContactRepo(db *pgxpool.Pool) *ContactRepo {
	return &ContactRepo{db: db}
}

// ListByOwner returns the owner's contacts, favorites first, joined
// with the contact profile's display fields.
func (r *ContactRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.owner_id, c.account_id, c.alias, p.cedula, p.name, c.is_favorite, c.created_at
		FROM contacts c
		JOIN profiles p ON p.id = c.account_id
		WHERE c.owner_id = $1
		ORDER BY c.is_favorite DESC, c.alias`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []model.Contact
	for rows.Next() {
		var c model.Contact
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.AccountID, &c.Alias, &c.Cedula, &c.Name, &c.IsFavorite, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ContactRepo) Insert(ctx context.Context, c *model.Contact) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO contacts (id, owner_id, account_id, alias, is_favorite)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		c.ID, c.OwnerID, c.AccountID, c.Alias, c.IsFavorite).Scan(&c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert contact: %w", err)
	}
	return nil
}

func (r *ContactRepo) UpdateAlias(ctx context.Context, id uuid.UUID, alias string) error {
	return r.exec(ctx, `UPDATE contacts SET alias = $1 WHERE id = $2`, alias, id)
}

func (r *ContactRepo) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return r.exec(ctx, `UPDATE contacts SET is_favorite = $1 WHERE id = $2`, favorite, id)
}

func (r *ContactRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return r.exec(ctx, `DELETE FROM contacts WHERE id = $1`, id)
}

func (r *ContactRepo) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("contact update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrContactNotFound
	}
	return nil
}
