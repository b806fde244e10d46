package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier classifies an account for commission purposes.
type Tier string

const (
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Account is a user profile with its Capy balance.
// Cedula is the external national-ID-like identifier, unique per account.
type Account struct {
	ID           uuid.UUID       `json:"id"`
	Cedula       string          `json:"cedula"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"-"`
	Tier         Tier            `json:"tier"`
	Balance      decimal.Decimal `json:"balance"`
	XP           int64           `json:"xp"`
	Points       int64           `json:"points"`
	Faculty      string          `json:"faculty,omitempty"`
	Career       string          `json:"career,omitempty"`
	PinHash      string          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
}

// HasPin reports whether a transfer PIN has been configured.
func (a *Account) HasPin() bool {
	return a.PinHash != ""
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Cedula   string `json:"cedula"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Faculty  string `json:"faculty"`
	Career   string `json:"career"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token   string   `json:"token"`
	Account *Account `json:"account"`
}

// Contact is an entry in an account's saved-recipients list.
type Contact struct {
	ID         uuid.UUID `json:"id"`
	OwnerID    uuid.UUID `json:"owner_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Alias      string    `json:"alias"`
	Cedula     string    `json:"cedula"`
	Name       string    `json:"name"`
	IsFavorite bool      `json:"is_favorite"`
	CreatedAt  time.Time `json:"created_at"`
}
