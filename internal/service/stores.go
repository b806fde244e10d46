package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"capypay/internal/model"
)

// Store interfaces consumed by the engines. The pgx repositories in
// internal/repository implement them; tests use in-memory fakes so the
// engines stay store-agnostic.

type AccountStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Account, error)
	GetByCedula(ctx context.Context, cedula string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) error
	Search(ctx context.Context, q string, limit int) ([]model.Account, error)
	UpdatePin(ctx context.Context, id uuid.UUID, pinHash string) error
	AwardXP(ctx context.Context, id uuid.UUID, xp int64) error
	TopByXP(ctx context.Context, limit int) ([]model.Account, error)
	FacultyXP(ctx context.Context) ([]model.FacultyStanding, error)
}

type WalletStore interface {
	Recharge(ctx context.Context, accountID uuid.UUID, bsAmount, rate, capyAmount decimal.Decimal, method string) (*model.Recharge, decimal.Decimal, error)
	Transfer(ctx context.Context, senderID, receiverID uuid.UUID, amount, commission decimal.Decimal, concept, category string) (*model.Transaction, decimal.Decimal, error)
	TransactionsByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Transaction, error)
	RechargesByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Recharge, error)
}

type RateStore interface {
	Get(ctx context.Context) (decimal.Decimal, error)
	Set(ctx context.Context, rate decimal.Decimal) error
}

type MenuStore interface {
	ListAvailable(ctx context.Context, category string) ([]model.MenuItem, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]model.MenuItem, error)
}

type OrderStore interface {
	Settle(ctx context.Context, s model.Settlement) (uuid.UUID, decimal.Decimal, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]model.Order, error)
	Complete(ctx context.Context, id uuid.UUID) error
	CountByStatus(ctx context.Context, status string) (int, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
}

type ContactStore interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error)
	Insert(ctx context.Context, c *model.Contact) error
	UpdateAlias(ctx context.Context, id uuid.UUID, alias string) error
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type SessionStore interface {
	Create(ctx context.Context, accountID uuid.UUID) (string, error)
	Resolve(ctx context.Context, token string) (uuid.UUID, error)
}

// ResponseCache is the advisory read-model cache (ranking, stats).
type ResponseCache interface {
	GetJSON(ctx context.Context, key string, dest any) error
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Bus publishes best-effort events; failures never fail the caller.
type Bus interface {
	Publish(topic string, data []byte) error
}
