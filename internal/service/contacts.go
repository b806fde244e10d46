package service

import (
	"context"

	"github.com/google/uuid"

	"capypay/internal/model"
)

type ContactService interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error)
	Add(ctx context.Context, ownerID uuid.UUID, cedula, alias string) (*model.Contact, error)
	UpdateAlias(ctx context.Context, id uuid.UUID, alias string) error
	SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error
	Remove(ctx context.Context, id uuid.UUID) error
}

// Contacts manages an account's saved-recipients list. Thin glue over
// the stores; the contact target is resolved by cedula like transfers.
type Contacts struct {
	accounts AccountStore
	contacts ContactStore
}

func NewContacts(accounts AccountStore, contacts ContactStore) *Contacts {
	return &Contacts{accounts: accounts, contacts: contacts}
}

func (c *Contacts) List(ctx context.Context, ownerID uuid.UUID) ([]model.Contact, error) {
	return c.contacts.ListByOwner(ctx, ownerID)
}

func (c *Contacts) Add(ctx context.Context, ownerID uuid.UUID, cedula, alias string) (*model.Contact, error) {
	target, err := c.accounts.GetByCedula(ctx, cedula)
	if err != nil {
		return nil, err
	}
	if target.ID == ownerID {
		return nil, model.ErrSelfTransfer
	}
	if alias == "" {
		alias = target.Name
	}
	contact := &model.Contact{
		OwnerID:   ownerID,
		AccountID: target.ID,
		Alias:     alias,
		Cedula:    target.Cedula,
		Name:      target.Name,
	}
	if err := c.contacts.Insert(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

func (c *Contacts) UpdateAlias(ctx context.Context, id uuid.UUID, alias string) error {
	return c.contacts.UpdateAlias(ctx, id, alias)
}

func (c *Contacts) SetFavorite(ctx context.Context, id uuid.UUID, favorite bool) error {
	return c.contacts.SetFavorite(ctx, id, favorite)
}

func (c *Contacts) Remove(ctx context.Context, id uuid.UUID) error {
	return c.contacts.Delete(ctx, id)
}
