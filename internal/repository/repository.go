package repository

import (
	"context"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
)

// CustomerFilter narrows a customer listing. Query matches first name, last
// name or email, case-insensitive.
type CustomerFilter struct {
	Query  string
	Offset int
	Limit  int
}

// OrderFilter narrows an order listing.
type OrderFilter struct {
	CustomerID *string
	Status     *domain.OrderStatus
	Offset     int
	Limit      int
}

// UserRepository persists login accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.UserAccount) error
	GetByID(ctx context.Context, id string) (*domain.UserAccount, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserAccount, error)
	TouchLastLogin(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]domain.UserAccount, int, error)
	// Update writes the credential, role and activation fields.
	Update(ctx context.Context, user *domain.UserAccount) error
	// Delete removes the account and detaches any customer profile from it.
	Delete(ctx context.Context, id string) error
}

// CustomerRepository persists customer profiles and their group memberships.
type CustomerRepository interface {
	// CreateWithAccount inserts the account and the profile in one transaction.
	CreateWithAccount(ctx context.Context, user *domain.UserAccount, customer *domain.Customer) error
	GetByID(ctx context.Context, id string) (*domain.Customer, error)
	// ListByUserIDs returns the profiles attached to the given accounts,
	// without their groups.
	ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Customer, error)
	// EmailTaken reports whether email belongs to a customer other than excludeID.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
	List(ctx context.Context, filter CustomerFilter) ([]domain.Customer, int, error)
	Update(ctx context.Context, customer *domain.Customer) error
	Delete(ctx context.Context, id string) error
	// ReplaceGroups swaps the whole membership set atomically.
	ReplaceGroups(ctx context.Context, customerID string, groupIDs []string) error
}

// AddressRepository persists address books.
type AddressRepository interface {
	List(ctx context.Context, customerID string) ([]domain.Address, error)
	// Mutate locks the customer, loads its book, runs fn and persists the
	// changes together with the customer's default pointers. Nothing is
	// written when fn fails.
	Mutate(ctx context.Context, customerID string, fn func(*domain.AddressBook) error) error
}

// GroupRepository persists customer groups.
type GroupRepository interface {
	Create(ctx context.Context, group *domain.CustomerGroup) error
	GetByID(ctx context.Context, id string) (*domain.CustomerGroup, error)
	List(ctx context.Context, offset, limit int) ([]domain.CustomerGroup, int, error)
	Delete(ctx context.Context, id string) error
}

// OrderRepository persists orders and their items.
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)
	// Mutate locks the order row, runs fn on the loaded order and writes the
	// result back with its items.
	Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error)
}

// IdempotencyStore remembers which order an Idempotency-Key produced.
type IdempotencyStore interface {
	// Reserve claims key for orderID. When the key was already claimed it
	// returns the earlier order id and false.
	Reserve(ctx context.Context, key, orderID string) (string, bool, error)
	Release(ctx context.Context, key string) error
}
