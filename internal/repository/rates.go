package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

const (
	rateCacheKey = "config:rate"
	rateCacheTTL = 5 * time.Minute
)

// RateRepo serves the singleton exchange-rate row, fronted by a Redis
// cache. Postgres stays the source of truth; a cache failure only
// costs a round-trip.
type RateRepo struct {
	db  *pgxpool.Pool
	rdb *redis.Client
}

func NewRateRepo(db *pgxpool.Pool, rdb *redis.Client) *RateRepo {
	return &RateRepo{db: db, rdb: rdb}
}

func (r *RateRepo) Get(ctx context.Context) (decimal.Decimal, error) {
	if cached, err := r.rdb.Get(ctx, rateCacheKey).Result(); err == nil {
		if rate, derr := decimal.NewFromString(cached); derr == nil {
			return rate, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		slog.Warn("rate cache read failed, falling back to postgres", "error", err)
	}

	var rate decimal.Decimal
	err := r.db.QueryRow(ctx, `SELECT rate FROM global_config WHERE id = 1`).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, model.ErrRateNotSet
		}
		return decimal.Zero, fmt.Errorf("read rate: %w", err)
	}

	if err := r.rdb.Set(ctx, rateCacheKey, rate.String(), rateCacheTTL).Err(); err != nil {
		slog.Warn("rate cache write failed", "error", err)
	}
	return rate, nil
}

// Set upserts the singleton row and invalidates the cache.
func (r *RateRepo) Set(ctx context.Context, rate decimal.Decimal) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO global_config (id, rate, updated_at)
		VALUES (1, $1, now())
		ON CONFLICT (id) DO UPDATE SET rate = EXCLUDED.rate, updated_at = now()`, rate)
	if err != nil {
		return fmt.Errorf("upsert rate: %w", err)
	}
	if err := r.rdb.Del(ctx, rateCacheKey).Err(); err != nil {
		slog.Warn("rate cache invalidation failed", "error", err)
	}
	return nil
}
