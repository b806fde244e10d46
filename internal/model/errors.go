package model

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel errors shared by the repositories and the engines. The HTTP
// layer maps them to status codes.
var (
	ErrAccountNotFound      = errors.New("account not found")
	ErrSenderNotFound       = errors.New("sender not found")
	ErrReceiverNotFound     = errors.New("receiver not found")
	ErrOrderNotFound        = errors.New("order not found")
	ErrRateNotSet           = errors.New("exchange rate not configured")
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrSelfTransfer         = errors.New("sender and receiver are the same account")
	ErrBadPin               = errors.New("security pin mismatch")
	ErrEmailTaken           = errors.New("email already registered")
	ErrCedulaTaken          = errors.New("cedula already registered")
	ErrBadCredentials       = errors.New("invalid credentials")
	ErrEmptyOrder           = errors.New("order has no items")
	ErrContactNotFound      = errors.New("contact not found")
	ErrNotificationNotFound = errors.New("notification not found")
)

// InsufficientFundsError carries the shortfall so clients can tell the
// user how much is missing.
type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s", e.Required, e.Available)
}

func (e *InsufficientFundsError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Available)
}

// ItemNotFoundError identifies which requested menu item does not exist
// or is unavailable.
type ItemNotFoundError struct {
	ItemID uuid.UUID
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("menu item %s not found", e.ItemID)
}

// StockError names the item that cannot cover the requested quantity.
type StockError struct {
	ItemName  string
	Requested int
	Stock     int
}

func (e *StockError) Error() string {
	return fmt.Sprintf("not enough stock for %s: requested %d, have %d", e.ItemName, e.Requested, e.Stock)
}

// TransactionFailedError wraps a store-side failure of the atomic
// settlement, surfacing the store message when available.
type TransactionFailedError struct {
	Err error
}

func (e *TransactionFailedError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Err)
}

func (e *TransactionFailedError) Unwrap() error {
	return e.Err
}
