package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"capypay/internal/commission"
	"capypay/internal/model"
)

type HistoryService interface {
	GetHistory(ctx context.Context, cedula string) (*model.History, error)
}

// HistoryAggregator merges transactions, recharges and orders into one
// chronological movement feed. Read-only and side-effect free: each
// source may fail independently and the feed degrades to partial data;
// only an unresolvable account aborts the call.
type HistoryAggregator struct {
	accounts AccountStore
	wallet   WalletStore
	orders   OrderStore
}

func NewHistoryAggregator(accounts AccountStore, wallet WalletStore, orders OrderStore) *HistoryAggregator {
	return &HistoryAggregator{accounts: accounts, wallet: wallet, orders: orders}
}

func (h *HistoryAggregator) GetHistory(ctx context.Context, cedula string) (*model.History, error) {
	account, err := h.accounts.GetByCedula(ctx, cedula)
	if err != nil {
		return nil, err
	}

	movements := []model.Movement{}

	txns, err := h.wallet.TransactionsByAccount(ctx, account.ID)
	if err != nil {
		slog.Error("history: transactions fetch failed", "account_id", account.ID, "error", err)
	}
	for _, t := range txns {
		movements = append(movements, transactionMovements(&t, account)...)
	}

	recharges, err := h.wallet.RechargesByAccount(ctx, account.ID)
	if err != nil {
		slog.Error("history: recharges fetch failed", "account_id", account.ID, "error", err)
	}
	for _, r := range recharges {
		movements = append(movements, model.Movement{
			ID:          r.ID.String(),
			Kind:        model.MovementRecharge,
			Amount:      r.AmountCpy,
			Description: fmt.Sprintf("Recarga vía %s", r.Method),
			Date:        r.CreatedAt,
			Negative:    false,
		})
	}

	orders, err := h.orders.ListByAccount(ctx, account.ID)
	if err != nil {
		slog.Error("history: orders fetch failed", "account_id", account.ID, "error", err)
	}
	for _, o := range orders {
		movements = append(movements, orderMovement(&o))
	}

	sort.SliceStable(movements, func(i, j int) bool {
		return movements[i].Date.After(movements[j].Date)
	})

	return &model.History{
		AccountName: account.Name,
		Count:       len(movements),
		Movements:   movements,
	}, nil
}

// transactionMovements yields one movement for the transfer itself and,
// when the account sent it with a nonzero commission, a synthetic
// commission movement sharing the timestamp.
func transactionMovements(t *model.Transaction, account *model.Account) []model.Movement {
	isSender := t.SenderID == account.ID
	kind := model.MovementReceived
	if isSender {
		kind = model.MovementSent
	}
	out := []model.Movement{{
		ID:          t.ID.String(),
		Kind:        kind,
		Amount:      t.Amount,
		Description: t.Concept,
		Date:        t.CreatedAt,
		Negative:    isSender,
	}}
	if isSender && t.Commission.Sign() > 0 {
		out = append(out, model.Movement{
			ID:          t.ID.String() + "-comision",
			Kind:        model.MovementCommission,
			Amount:      t.Commission,
			Description: "Comisión por transferencia",
			Date:        t.CreatedAt,
			Negative:    true,
		})
	}
	return out
}

// orderMovement maps an order to a consumption movement. Legacy rows
// may carry a zero total; recompute it from the captured line prices
// plus an estimated service fee.
func orderMovement(o *model.Order) model.Movement {
	amount := o.Total
	if amount.Sign() == 0 && len(o.Lines) > 0 {
		subtotal := amount
		for _, l := range o.Lines {
			subtotal = subtotal.Add(l.PriceAtTime.Mul(decimal.NewFromInt(int64(l.Quantity))))
		}
		if subtotal.Sign() > 0 {
			amount = subtotal.Add(commission.OrderFee(subtotal))
		}
	}
	return model.Movement{
		ID:          o.ID.String(),
		Kind:        model.MovementOrder,
		Amount:      amount,
		Description: "Pedido Comedor",
		Date:        o.CreatedAt,
		Negative:    true,
	}
}
