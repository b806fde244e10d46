package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"capypay/internal/model"
)

// AccountRepo is the Postgres store for user profiles.
type AccountRepo struct {
	db *pgxpool.Pool
}

func NewAccountRepo(db *pgxpool.Pool) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountColumns = `id, cedula, name, email, COALESCE(password_hash, ''), tier, balance,
	xp, points, COALESCE(faculty, ''), COALESCE(career, ''), COALESCE(pin_hash, ''), created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(&a.ID, &a.Cedula, &a.Name, &a.Email, &a.PasswordHash, &a.Tier, &a.Balance,
		&a.XP, &a.Points, &a.Faculty, &a.Career, &a.PinHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM profiles WHERE id = $1`, id)
	return scanAccount(row)
}

func (r *AccountRepo) GetByCedula(ctx context.Context, cedula string) (*model.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM profiles WHERE cedula = $1`, cedula)
	return scanAccount(row)
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM profiles WHERE email = $1`, email)
	return scanAccount(row)
}

func (r *AccountRepo) Create(ctx context.Context, a *model.Account) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO profiles (id, cedula, name, email, password_hash, tier, balance, xp, points, faculty, career)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULLIF($10, ''), NULLIF($11, ''))`,
		a.ID, a.Cedula, a.Name, a.Email, a.PasswordHash, a.Tier, a.Balance, a.XP, a.Points, a.Faculty, a.Career)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			switch pgErr.ConstraintName {
			case "profiles_email_key":
				return model.ErrEmailTaken
			case "profiles_cedula_key":
				return model.ErrCedulaTaken
			}
			return model.ErrCedulaTaken
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

// Search matches cedula prefixes or case-insensitive name fragments.
func (r *AccountRepo) Search(ctx context.Context, q string, limit int) ([]model.Account, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+accountColumns+` FROM profiles
		WHERE cedula LIKE $1 || '%' OR name ILIKE '%' || $1 || '%'
		ORDER BY name
		LIMIT $2`, q, limit)
	if err != nil {
		return nil, fmt.Errorf("search profiles: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// UpdatePin replaces the stored transfer-PIN hash.
func (r *AccountRepo) UpdatePin(ctx context.Context, id uuid.UUID, pinHash string) error {
	tag, err := r.db.Exec(ctx, `UPDATE profiles SET pin_hash = $1 WHERE id = $2`, pinHash, id)
	if err != nil {
		return fmt.Errorf("update pin: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// AwardXP increments experience points. Best-effort from the engines'
// point of view; failures are logged, never fatal.
func (r *AccountRepo) AwardXP(ctx context.Context, id uuid.UUID, xp int64) error {
	_, err := r.db.Exec(ctx, `UPDATE profiles SET xp = xp + $1 WHERE id = $2`, xp, id)
	return err
}

// TopByXP returns the leaderboard slice, highest XP first.
func (r *AccountRepo) TopByXP(ctx context.Context, limit int) ([]model.Account, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+accountColumns+` FROM profiles ORDER BY xp DESC, created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("top by xp: %w", err)
	}
	defer rows.Close()

	var out []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// FacultyXP aggregates XP and member counts per faculty.
func (r *AccountRepo) FacultyXP(ctx context.Context) ([]model.FacultyStanding, error) {
	rows, err := r.db.Query(ctx, `
		SELECT COALESCE(faculty, 'Sin Facultad'), COALESCE(SUM(xp), 0), COUNT(*)
		FROM profiles
		GROUP BY 1
		ORDER BY 2 DESC`)
	if err != nil {
		return nil, fmt.Errorf("faculty xp: %w", err)
	}
	defer rows.Close()

	var out []model.FacultyStanding
	for rows.Next() {
		var f model.FacultyStanding
		if err := rows.Scan(&f.Name, &f.XP, &f.Members); err != nil {
			return nil, fmt.Errorf("scan faculty standing: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
