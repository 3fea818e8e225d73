package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
)

// AddressService runs address book operations. Each mutation is one
// repository transaction under the customer's row lock.
type AddressService struct {
	addressRepo repository.AddressRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewAddressService creates a new address service.
func NewAddressService(addressRepo repository.AddressRepository, producer *event.Producer, logger *slog.Logger) *AddressService {
	return &AddressService{
		addressRepo: addressRepo,
		producer:    producer,
		logger:      logger,
	}
}

// defaults is the pair of default address ids of a book.
type defaults struct {
	shipping *string
	billing  *string
}

func defaultsOf(b *domain.AddressBook) defaults {
	return defaults{shipping: b.DefaultShippingID(), billing: b.DefaultBillingID()}
}

func (d defaults) equal(o defaults) bool {
	return sameID(d.shipping, o.shipping) && sameID(d.billing, o.billing)
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// mutate runs fn inside the repository transaction and publishes
// default_changed when the default pair moved.
func (s *AddressService) mutate(ctx context.Context, customerID string, fn func(*domain.AddressBook) error) error {
	var before, after defaults
	err := s.addressRepo.Mutate(ctx, customerID, func(b *domain.AddressBook) error {
		before = defaultsOf(b)
		if err := fn(b); err != nil {
			return err
		}
		after = defaultsOf(b)
		return nil
	})
	if err != nil {
		return err
	}

	if !before.equal(after) {
		if err := s.producer.PublishDefaultAddressChanged(ctx, customerID, after.shipping, after.billing); err != nil {
			logPublishError(ctx, s.logger, event.TopicDefaultAddressChanged, customerID, err)
		}
	}
	return nil
}

// List returns the customer's addresses in insertion order.
func (s *AddressService) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	addresses, err := s.addressRepo.List(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	return domain.NewAddressBook(customerID, addresses).List(), nil
}

// Get returns one of the customer's addresses.
func (s *AddressService) Get(ctx context.Context, customerID, addressID string) (*domain.Address, error) {
	addresses, err := s.addressRepo.List(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	a, err := domain.NewAddressBook(customerID, addresses).Get(addressID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Add stores a new address. Requested default flags move to it.
func (s *AddressService) Add(ctx context.Context, customerID string, address domain.Address) (*domain.Address, error) {
	var added domain.Address
	err := s.mutate(ctx, customerID, func(b *domain.AddressBook) error {
		added = b.Add(address)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add address: %w", err)
	}

	s.logger.InfoContext(ctx, "address added",
		slog.String("customer_id", customerID),
		slog.String("address_id", added.ID),
	)
	return &added, nil
}

// Update applies a partial update to an address.
func (s *AddressService) Update(ctx context.Context, customerID, addressID string, patch domain.AddressPatch) (*domain.Address, error) {
	var updated domain.Address
	err := s.mutate(ctx, customerID, func(b *domain.AddressBook) error {
		var err error
		updated, err = b.Update(addressID, patch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update address: %w", err)
	}

	s.logger.InfoContext(ctx, "address updated",
		slog.String("customer_id", customerID),
		slog.String("address_id", addressID),
	)
	return &updated, nil
}

// SetDefault makes the address both the shipping and the billing default.
func (s *AddressService) SetDefault(ctx context.Context, customerID, addressID string) (*domain.Address, error) {
	var target domain.Address
	err := s.mutate(ctx, customerID, func(b *domain.AddressBook) error {
		var err error
		target, err = b.SetDefault(addressID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("set default address: %w", err)
	}

	s.logger.InfoContext(ctx, "default address set",
		slog.String("customer_id", customerID),
		slog.String("address_id", addressID),
	)
	return &target, nil
}

// Remove deletes an address. No other address becomes default in its place.
func (s *AddressService) Remove(ctx context.Context, customerID, addressID string) error {
	err := s.mutate(ctx, customerID, func(b *domain.AddressBook) error {
		return b.Remove(addressID)
	})
	if err != nil {
		return fmt.Errorf("remove address: %w", err)
	}

	s.logger.InfoContext(ctx, "address removed",
		slog.String("customer_id", customerID),
		slog.String("address_id", addressID),
	)
	return nil
}
