package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// Address is one postal address owned by exactly one customer.
type Address struct {
	ID                string         `json:"id"`
	CustomerID        string         `json:"customer_id"`
	FirstName         string         `json:"first_name"`
	LastName          string         `json:"last_name"`
	Company           string         `json:"company,omitempty"`
	Address1          string         `json:"address_1"`
	Address2          string         `json:"address_2,omitempty"`
	City              string         `json:"city"`
	Province          string         `json:"province,omitempty"`
	PostalCode        string         `json:"postal_code"`
	CountryCode       string         `json:"country_code"`
	Phone             string         `json:"phone,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	IsDefaultShipping bool           `json:"is_default_shipping"`
	IsDefaultBilling  bool           `json:"is_default_billing"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

// AddressPatch carries a partial address update. Nil fields are left as they are.
type AddressPatch struct {
	FirstName         *string
	LastName          *string
	Company           *string
	Address1          *string
	Address2          *string
	City              *string
	Province          *string
	PostalCode        *string
	CountryCode       *string
	Phone             *string
	Metadata          map[string]any
	IsDefaultShipping *bool
	IsDefaultBilling  *bool
}

func (p AddressPatch) apply(a *Address) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&a.FirstName, p.FirstName)
	set(&a.LastName, p.LastName)
	set(&a.Company, p.Company)
	set(&a.Address1, p.Address1)
	set(&a.Address2, p.Address2)
	set(&a.City, p.City)
	set(&a.Province, p.Province)
	set(&a.PostalCode, p.PostalCode)
	set(&a.CountryCode, p.CountryCode)
	set(&a.Phone, p.Phone)
	if p.Metadata != nil {
		a.Metadata = p.Metadata
	}
}

type changeKind int

const (
	changeInserted changeKind = iota + 1
	changeUpdated
)

// AddressChanges lists what an AddressBook mutation must persist.
type AddressChanges struct {
	Inserted []Address
	Updated  []Address
	Deleted  []string
}

// Empty reports whether there is nothing to persist.
func (c AddressChanges) Empty() bool {
	return len(c.Inserted) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

// AddressBook is a customer's address collection. It keeps at most one
// default-shipping and at most one default-billing address, and records the
// rows each mutation touched so a repository can persist only those.
type AddressBook struct {
	CustomerID string

	addresses []*Address
	changed   map[string]changeKind
	deleted   []string
	now       func() time.Time
}

// NewAddressBook builds a book from persisted addresses. Addresses are kept
// in insertion order (created_at, then id).
func NewAddressBook(customerID string, addresses []Address) *AddressBook {
	b := &AddressBook{
		CustomerID: customerID,
		addresses:  make([]*Address, 0, len(addresses)),
		changed:    make(map[string]changeKind),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for i := range addresses {
		a := addresses[i]
		b.addresses = append(b.addresses, &a)
	}
	sort.SliceStable(b.addresses, func(i, j int) bool {
		ai, aj := b.addresses[i], b.addresses[j]
		if !ai.CreatedAt.Equal(aj.CreatedAt) {
			return ai.CreatedAt.Before(aj.CreatedAt)
		}
		return ai.ID < aj.ID
	})
	return b
}

// Add appends a new address and returns it with its assigned id. If the
// address asks to be a default, the flag is first cleared everywhere else.
func (b *AddressBook) Add(a Address) Address {
	now := b.now()
	a.ID = uuid.NewString()
	a.CustomerID = b.CustomerID
	a.CreatedAt = now
	a.UpdatedAt = now

	if a.IsDefaultShipping {
		b.clearShipping(a.ID)
	}
	if a.IsDefaultBilling {
		b.clearBilling(a.ID)
	}

	stored := a
	b.addresses = append(b.addresses, &stored)
	b.changed[stored.ID] = changeInserted
	return stored
}

// Update applies patch to an owned address. A true default flag moves the
// default here; a false one clears it on this address only.
func (b *AddressBook) Update(id string, patch AddressPatch) (Address, error) {
	a := b.find(id)
	if a == nil {
		return Address{}, apperrors.NotFound("address", id)
	}

	patch.apply(a)
	if v := patch.IsDefaultShipping; v != nil {
		if *v {
			b.clearShipping(id)
		}
		a.IsDefaultShipping = *v
	}
	if v := patch.IsDefaultBilling; v != nil {
		if *v {
			b.clearBilling(id)
		}
		a.IsDefaultBilling = *v
	}

	b.touch(a)
	return *a, nil
}

// SetDefault makes id the only default-shipping and default-billing address.
func (b *AddressBook) SetDefault(id string) (Address, error) {
	a := b.find(id)
	if a == nil {
		return Address{}, apperrors.NotFound("address", id)
	}

	b.clearShipping(id)
	b.clearBilling(id)
	if !a.IsDefaultShipping || !a.IsDefaultBilling {
		a.IsDefaultShipping = true
		a.IsDefaultBilling = true
		b.touch(a)
	}
	return *a, nil
}

// Remove deletes an owned address. No other address is promoted when the
// removed one was a default.
func (b *AddressBook) Remove(id string) error {
	for i, a := range b.addresses {
		if a.ID != id {
			continue
		}
		b.addresses = append(b.addresses[:i], b.addresses[i+1:]...)
		if b.changed[id] != changeInserted {
			b.deleted = append(b.deleted, id)
		}
		delete(b.changed, id)
		return nil
	}
	return apperrors.NotFound("address", id)
}

// Get returns a copy of an owned address.
func (b *AddressBook) Get(id string) (Address, error) {
	a := b.find(id)
	if a == nil {
		return Address{}, apperrors.NotFound("address", id)
	}
	return *a, nil
}

// List returns copies of all addresses in insertion order.
func (b *AddressBook) List() []Address {
	out := make([]Address, 0, len(b.addresses))
	for _, a := range b.addresses {
		out = append(out, *a)
	}
	return out
}

// DefaultShippingID returns the id of the default-shipping address, or nil.
func (b *AddressBook) DefaultShippingID() *string {
	for _, a := range b.addresses {
		if a.IsDefaultShipping {
			id := a.ID
			return &id
		}
	}
	return nil
}

// DefaultBillingID returns the id of the default-billing address, or nil.
func (b *AddressBook) DefaultBillingID() *string {
	for _, a := range b.addresses {
		if a.IsDefaultBilling {
			id := a.ID
			return &id
		}
	}
	return nil
}

// Changes returns the rows touched since the book was loaded.
func (b *AddressBook) Changes() AddressChanges {
	var c AddressChanges
	for _, a := range b.addresses {
		switch b.changed[a.ID] {
		case changeInserted:
			c.Inserted = append(c.Inserted, *a)
		case changeUpdated:
			c.Updated = append(c.Updated, *a)
		}
	}
	c.Deleted = append(c.Deleted, b.deleted...)
	return c
}

func (b *AddressBook) find(id string) *Address {
	for _, a := range b.addresses {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (b *AddressBook) clearShipping(except string) {
	for _, a := range b.addresses {
		if a.ID != except && a.IsDefaultShipping {
			a.IsDefaultShipping = false
			b.touch(a)
		}
	}
}

func (b *AddressBook) clearBilling(except string) {
	for _, a := range b.addresses {
		if a.ID != except && a.IsDefaultBilling {
			a.IsDefaultBilling = false
			b.touch(a)
		}
	}
}

func (b *AddressBook) touch(a *Address) {
	a.UpdatedAt = b.now()
	if b.changed[a.ID] != changeInserted {
		b.changed[a.ID] = changeUpdated
	}
}
