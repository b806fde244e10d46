package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"capypay/internal/model"
)

const searchLimit = 20

type UserService interface {
	Register(ctx context.Context, req model.RegisterRequest) (*model.Account, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*model.Account, error)
	UpdatePin(ctx context.Context, id uuid.UUID, pin string) error
	Search(ctx context.Context, q string) ([]model.Account, error)
}

// Users is the thin account/session glue around the ledger: bcrypt
// credential hashing and opaque Redis-backed session tokens.
type Users struct {
	accounts AccountStore
	sessions SessionStore
}

func NewUsers(accounts AccountStore, sessions SessionStore) *Users {
	return &Users{accounts: accounts, sessions: sessions}
}

func (u *Users) Register(ctx context.Context, req model.RegisterRequest) (*model.Account, error) {
	if req.Name == "" || req.Cedula == "" || req.Email == "" || req.Password == "" {
		return nil, model.ErrBadCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	account := &model.Account{
		ID:           uuid.New(),
		Cedula:       strings.TrimSpace(req.Cedula),
		Name:         req.Name,
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(hash),
		Tier:         model.TierStandard,
		Balance:      decimal.Zero,
		Faculty:      req.Faculty,
		Career:       req.Career,
	}
	if err := u.accounts.Create(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *Users) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResult, error) {
	account, err := u.accounts.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, model.ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		return nil, model.ErrBadCredentials
	}
	token, err := u.sessions.Create(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	return &model.LoginResult{Token: token, Account: account}, nil
}

func (u *Users) GetProfile(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	return u.accounts.GetByID(ctx, id)
}

// UpdatePin hashes and stores a 4-6 digit transfer PIN.
func (u *Users) UpdatePin(ctx context.Context, id uuid.UUID, pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return model.ErrBadPin
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return model.ErrBadPin
		}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return u.accounts.UpdatePin(ctx, id, string(hash))
}

func (u *Users) Search(ctx context.Context, q string) ([]model.Account, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []model.Account{}, nil
	}
	return u.accounts.Search(ctx, q, searchLimit)
}
