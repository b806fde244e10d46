package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

// WalletRepo executes the balance-affecting operations. Every mutation
// runs inside a single Postgres transaction; application code is the
// sole authority over balances — there are no triggers deriving them.
type WalletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepo(db *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{db: db}
}

// Recharge credits capyAmount to the account and records the recharge
// with the rate snapshot, atomically.
func (r *WalletRepo) Recharge(ctx context.Context, accountID uuid.UUID, bsAmount, rate, capyAmount decimal.Decimal, method string) (*model.Recharge, decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin recharge: %w", err)
	}
	defer tx.Rollback(ctx)

	var newBalance decimal.Decimal
	err = tx.QueryRow(ctx,
		`UPDATE profiles SET balance = balance + $1 WHERE id = $2 RETURNING balance`,
		capyAmount, accountID).Scan(&newBalance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, decimal.Zero, model.ErrAccountNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("credit balance: %w", err)
	}

	rec := &model.Recharge{
		ID:        uuid.New(),
		AccountID: accountID,
		AmountBs:  bsAmount,
		Rate:      rate,
		AmountCpy: capyAmount,
		Method:    method,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO recharges (id, account_id, amount_bs, rate, amount_capy, method)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`,
		rec.ID, rec.AccountID, rec.AmountBs, rec.Rate, rec.AmountCpy, rec.Method).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("insert recharge: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commit recharge: %w", err)
	}
	return rec, newBalance, nil
}

// Transfer debits amount+commission from the sender, credits amount to
// the receiver and records the transaction, all in one transaction.
// Both account rows are locked FOR UPDATE in deterministic id order so
// two racing transfers between the same pair cannot deadlock.
func (r *WalletRepo) Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount, comm decimal.Decimal, concept, category string) (*model.Transaction, decimal.Decimal, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := senderID, receiverID
	if second.String() < first.String() {
		first, second = second, first
	}
	for _, id := range []uuid.UUID{first, second} {
		if _, err := tx.Exec(ctx, `SELECT 1 FROM profiles WHERE id = $1 FOR UPDATE`, id); err != nil {
			return nil, decimal.Zero, fmt.Errorf("lock account %s: %w", id, err)
		}
	}

	var balance decimal.Decimal
	err = tx.QueryRow(ctx, `SELECT balance FROM profiles WHERE id = $1`, senderID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, decimal.Zero, model.ErrSenderNotFound
		}
		return nil, decimal.Zero, fmt.Errorf("read sender balance: %w", err)
	}

	total := amount.Add(comm)
	if balance.LessThan(total) {
		return nil, decimal.Zero, &model.InsufficientFundsError{Required: total, Available: balance}
	}

	newBalance := balance.Sub(total)
	if _, err := tx.Exec(ctx, `UPDATE profiles SET balance = $1 WHERE id = $2`, newBalance, senderID); err != nil {
		return nil, decimal.Zero, fmt.Errorf("debit sender: %w", err)
	}
	tag, err := tx.Exec(ctx, `UPDATE profiles SET balance = balance + $1 WHERE id = $2`, amount, receiverID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("credit receiver: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, decimal.Zero, model.ErrReceiverNotFound
	}

	txn := &model.Transaction{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Amount:     amount,
		Commission: comm,
		Concept:    concept,
		Category:   category,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, commission, concept, category)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		txn.ID, txn.SenderID, txn.ReceiverID, txn.Amount, txn.Commission, txn.Concept, txn.Category).Scan(&txn.CreatedAt)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("insert transaction: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, decimal.Zero, fmt.Errorf("commit transfer: %w", err)
	}
	return txn, newBalance, nil
}

// TransactionsByAccount returns transfers where the account is either party.
func (r *WalletRepo) TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, sender_id, receiver_id, amount, commission, concept, category, created_at
		FROM transactions
		WHERE sender_id = $1 OR receiver_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(&t.ID, &t.SenderID, &t.ReceiverID, &t.Amount, &t.Commission, &t.Concept, &t.Category, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *WalletRepo) RechargesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Recharge, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, amount_bs, rate, amount_capy, method, created_at
		FROM recharges
		WHERE account_id = $1`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list recharges: %w", err)
	}
	defer rows.Close()

	var out []model.Recharge
	for rows.Next() {
		var rec model.Recharge
		if err := rows.Scan(&rec.ID, &rec.AccountID, &rec.AmountBs, &rec.Rate, &rec.AmountCpy, &rec.Method, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recharge: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
