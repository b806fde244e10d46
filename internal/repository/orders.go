package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

// OrderRepo owns order rows and the settlement procedure.
type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(db *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: db}
}

// Settle runs the whole order settlement as one Postgres transaction:
// balance debit, stock decrement per line, sales counters, order and
// line insertion and reward grants. Stock and balance are re-verified
// under row locks, so two racing orders for the last unit resolve to
// exactly one success. Any failure rolls the whole settlement back.
func (r *OrderRepo) Settle(ctx context.Context, s model.Settlement) (uuid.UUID, decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM profiles WHERE id = $1 FOR UPDATE`, s.AccountID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, decimal.Zero, model.ErrAccountNotFound
		}
		return uuid.Nil, decimal.Zero, fmt.Errorf("lock account: %w", err)
	}
	if balance.LessThan(s.Total) {
		return uuid.Nil, decimal.Zero, &model.InsufficientFundsError{Required: s.Total, Available: balance}
	}

	// Deterministic lock order across items keeps concurrent orders
	// from deadlocking each other.
	lines := make([]model.OrderLine, len(s.Lines))
	copy(lines, s.Lines)
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].MenuItemID.String() < lines[j].MenuItemID.String()
	})

	for _, line := range lines {
		var name string
		err := tx.QueryRow(ctx, `
			UPDATE menu_items
			SET stock = stock - $1, sales = sales + $1
			WHERE id = $2 AND stock >= $1
			RETURNING name`, line.Quantity, line.MenuItemID).Scan(&name)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, decimal.Zero, fmt.Errorf("decrement stock: %w", err)
		}
		// Distinguish a missing item from exhausted stock.
		var stock int
		serr := tx.QueryRow(ctx, `SELECT name, stock FROM menu_items WHERE id = $1`, line.MenuItemID).Scan(&name, &stock)
		if serr != nil {
			return uuid.Nil, decimal.Zero, &model.ItemNotFoundError{ItemID: line.MenuItemID}
		}
		return uuid.Nil, decimal.Zero, &model.StockError{ItemName: name, Requested: line.Quantity, Stock: stock}
	}

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx, `
		UPDATE profiles
		SET balance = balance - $1, xp = xp + $2, points = points + $3
		WHERE id = $4
		RETURNING balance`, s.Total, s.XP, s.Points, s.AccountID).Scan(&newBalance)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("debit balance: %w", err)
	}

	orderID := uuid.New()
	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, account_id, total, status)
		VALUES ($1, $2, $3, $4)`, orderID, s.AccountID, s.Total, model.OrderPreparing)
	if err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("insert order: %w", err)
	}
	for _, line := range s.Lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items (order_id, menu_item_id, quantity, price_at_time)
			VALUES ($1, $2, $3, $4)`, orderID, line.MenuItemID, line.Quantity, line.PriceAtTime)
		if err != nil {
			return uuid.Nil, decimal.Zero, fmt.Errorf("insert order line: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, decimal.Zero, fmt.Errorf("commit settlement: %w", err)
	}
	return orderID, newBalance, nil
}

const orderColumns = `o.id, o.account_id, o.total, o.status, o.created_at, o.completed_at`

func (r *OrderRepo) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var o model.Order
	err := r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id).
		Scan(&o.ID, &o.AccountID, &o.Total, &o.Status, &o.CreatedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	lines, err := r.linesForOrders(ctx, []uuid.UUID{o.ID})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[o.ID]
	return &o, nil
}

// ListByAccount returns the account's orders newest first, lines included.
func (r *OrderRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Order, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+orderColumns+` FROM orders o
		WHERE o.account_id = $1
		ORDER BY o.created_at DESC`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	var ids []uuid.UUID
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.AccountID, &o.Total, &o.Status, &o.CreatedAt, &o.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return orders, nil
	}

	lines, err := r.linesForOrders(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
	}
	return orders, nil
}

// linesForOrders fetches order lines joined with menu display fields.
func (r *OrderRepo) linesForOrders(ctx context.Context, orderIDs []uuid.UUID) (map[uuid.UUID][]model.OrderLine, error) {
	rows, err := r.db.Query(ctx, `
		SELECT oi.order_id, oi.menu_item_id, oi.quantity, oi.price_at_time,
		       m.name, COALESCE(m.image_url, '')
		FROM order_items oi
		JOIN menu_items m ON m.id = oi.menu_item_id
		WHERE oi.order_id = ANY($1)`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("list order lines: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID][]model.OrderLine)
	for rows.Next() {
		var orderID uuid.UUID
		var l model.OrderLine
		if err := rows.Scan(&orderID, &l.MenuItemID, &l.Quantity, &l.PriceAtTime, &l.Name, &l.ImageURL); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		out[orderID] = append(out[orderID], l)
	}
	return out, rows.Err()
}

// Complete marks a preparing order as completed.
func (r *OrderRepo) Complete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE orders SET status = $1, completed_at = now()
		WHERE id = $2 AND status = $3`, model.OrderCompleted, id, model.OrderPreparing)
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}
	return nil
}

// CountByStatus feeds the advisory cafeteria stats.
func (r *OrderRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE status = $1`, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}
