package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"capypay/internal/commission"
	"capypay/internal/model"
)

// NATS topic for best-effort notification events.
const TopicNotifications = "notifications.created"

// XP bonuses (gamification, best-effort).
const (
	xpPerRecharge = 10
	xpPerTransfer = 5
)

// WalletService defines the balance-affecting operations. Transports
// depend on this interface, not on the engine.
type WalletService interface {
	Recharge(ctx context.Context, req model.RechargeRequest) (*model.RechargeResult, error)
	Transfer(ctx context.Context, req model.TransferRequest) (*model.TransferResult, error)
	GetRate(ctx context.Context) (decimal.Decimal, error)
	SetRate(ctx context.Context, rate decimal.Decimal) error
}

// CommissionFunc computes the fee for a transfer. The engine treats
// any error as commission zero rather than failing the transfer.
type CommissionFunc func(amount decimal.Decimal, tier model.Tier) (decimal.Decimal, error)

// WalletEngine validates and executes recharges and transfers against
// the ledger store. It holds no state of its own; concurrency safety
// is delegated to the store's transactions.
type WalletEngine struct {
	accounts AccountStore
	wallet   WalletStore
	rates    RateStore
	bus      Bus
	calc     CommissionFunc

	// Whether P2P transfers are charged a commission. The business has
	// flip-flopped on this; it stays a policy flag, currently off.
	p2pCommission bool
}

func NewWalletEngine(accounts AccountStore, wallet WalletStore, rates RateStore, bus Bus, p2pCommission bool) *WalletEngine {
	return &WalletEngine{
		accounts:      accounts,
		wallet:        wallet,
		rates:         rates,
		bus:           bus,
		calc:          commission.Calculate,
		p2pCommission: p2pCommission,
	}
}

// Recharge converts an external-currency amount to Capys at the current
// rate and credits the account. The rate is snapshotted on the recharge
// record and never recomputed.
func (e *WalletEngine) Recharge(ctx context.Context, req model.RechargeRequest) (*model.RechargeResult, error) {
	if req.AmountBs.Sign() <= 0 {
		return nil, model.ErrInvalidAmount
	}

	account, err := e.accounts.GetByCedula(ctx, req.Cedula)
	if err != nil {
		return nil, err
	}

	rate, err := e.rates.Get(ctx)
	if err != nil {
		return nil, err
	}

	capy := req.AmountBs.DivRound(rate, 2)
	rec, newBalance, err := e.wallet.Recharge(ctx, account.ID, req.AmountBs, rate, capy, req.Method)
	if err != nil {
		return nil, err
	}

	if err := e.accounts.AwardXP(ctx, account.ID, xpPerRecharge); err != nil {
		slog.Warn("recharge xp award failed", "account_id", account.ID, "error", err)
	}

	return &model.RechargeResult{NewBalance: newBalance, Recharge: rec}, nil
}

// Transfer moves amount from sender to receiver, charging the sender
// amount plus commission. The receiver never receives the commission.
func (e *WalletEngine) Transfer(ctx context.Context, req model.TransferRequest) (*model.TransferResult, error) {
	if req.Amount.Sign() <= 0 {
		return nil, model.ErrInvalidAmount
	}

	sender, err := e.accounts.GetByID(ctx, req.SenderID)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.ErrSenderNotFound
		}
		return nil, err
	}
	receiver, err := e.accounts.GetByCedula(ctx, req.ReceiverCedula)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return nil, model.ErrReceiverNotFound
		}
		return nil, err
	}
	// Resolved ids, not raw input: catches self-transfers through an
	// alternate identifier.
	if sender.ID == receiver.ID {
		return nil, model.ErrSelfTransfer
	}

	// PIN verification is skipped when no PIN is configured. Known
	// soft spot: opt-in security, flagged in DESIGN.md.
	if sender.HasPin() {
		if err := bcrypt.CompareHashAndPassword([]byte(sender.PinHash), []byte(req.Pin)); err != nil {
			return nil, model.ErrBadPin
		}
	}

	comm := decimal.Zero
	if e.p2pCommission {
		comm, err = e.calc(req.Amount, sender.Tier)
		if err != nil {
			// Fail-open: a broken calculator must not block transfers.
			slog.Error("commission calculation failed, charging zero", "error", err)
			comm = decimal.Zero
		}
	}

	concept := req.Concept
	if concept == "" {
		concept = "Transferencia"
	}
	txn, newBalance, err := e.wallet.Transfer(ctx, sender.ID, receiver.ID, req.Amount, comm, concept, "transferencia")
	if err != nil {
		return nil, err
	}

	e.notifyReceiver(receiver, sender, txn)

	if err := e.accounts.AwardXP(ctx, sender.ID, xpPerTransfer); err != nil {
		slog.Warn("transfer xp award failed", "account_id", sender.ID, "error", err)
	}

	return &model.TransferResult{Transaction: txn, Commission: comm, NewBalance: newBalance}, nil
}

// notifyReceiver publishes a payment-received event. Best-effort: a
// bus failure is logged and swallowed, never rolled back.
func (e *WalletEngine) notifyReceiver(receiver, sender *model.Account, txn *model.Transaction) {
	event := model.NotificationEvent{
		UserID:    receiver.ID,
		Type:      "payment_received",
		Message:   fmt.Sprintf("Recibiste %s Capys de %s", txn.Amount, sender.Name),
		RelatedID: txn.ID,
		CreatedAt: time.Now().UTC(),
	}
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("marshal notification event", "error", err)
		return
	}
	if err := e.bus.Publish(TopicNotifications, data); err != nil {
		slog.Warn("notification publish failed", "receiver_id", receiver.ID, "error", err)
	}
}

func (e *WalletEngine) GetRate(ctx context.Context) (decimal.Decimal, error) {
	return e.rates.Get(ctx)
}

func (e *WalletEngine) SetRate(ctx context.Context, rate decimal.Decimal) error {
	if rate.Sign() <= 0 {
		return model.ErrInvalidAmount
	}
	return e.rates.Set(ctx, rate)
}
