package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// CustomerService implements customer profile and membership operations.
type CustomerService struct {
	customerRepo repository.CustomerRepository
	groupRepo    repository.GroupRepository
	hasher       PasswordHasher
	producer     *event.Producer
	logger       *slog.Logger
	now          func() time.Time
	genPassword  func(n int) (string, error)
}

// NewCustomerService creates a new customer service.
func NewCustomerService(
	customerRepo repository.CustomerRepository,
	groupRepo repository.GroupRepository,
	hasher PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) *CustomerService {
	return &CustomerService{
		customerRepo: customerRepo,
		groupRepo:    groupRepo,
		hasher:       hasher,
		producer:     producer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		genPassword:  auth.GeneratePassword,
	}
}

// CreateCustomerInput holds the parameters for creating a customer. An empty
// Password gets a generated one.
type CreateCustomerInput struct {
	Profile  domain.CustomerProfile
	Password string
}

// Create adds a customer together with its login account.
func (s *CustomerService) Create(ctx context.Context, input CreateCustomerInput) (*domain.Customer, error) {
	profile := input.Profile
	profile.Email = normalizeEmail(profile.Email)
	if profile.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	taken, err := s.customerRepo.EmailTaken(ctx, profile.Email, "")
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, apperrors.AlreadyExists("customer", "email", profile.Email)
	}

	password := input.Password
	if password == "" {
		password, err = s.genPassword(auth.GeneratedPasswordLength)
		if err != nil {
			return nil, err
		}
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, customer := newCustomerAccount(s.now(), profile.Email, hash, profile)
	if err := s.customerRepo.CreateWithAccount(ctx, user, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	if err := s.producer.PublishCustomerCreated(ctx, customer); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerCreated, customer.ID, err)
	}

	s.logger.InfoContext(ctx, "customer created",
		slog.String("customer_id", customer.ID),
		slog.String("email", customer.Email),
	)

	return customer, nil
}

// Get returns a customer with its groups.
func (s *CustomerService) Get(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	return customer, nil
}

// List returns a page of customers and the total count. A non-empty query
// matches first name, last name or email.
func (s *CustomerService) List(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, int, error) {
	customers, total, err := s.customerRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

// Update overwrites the customer's profile fields.
func (s *CustomerService) Update(ctx context.Context, id string, profile domain.CustomerProfile) (*domain.Customer, error) {
	profile.Email = normalizeEmail(profile.Email)
	if profile.Email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}

	customer, err := s.customerRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if profile.Email != customer.Email {
		taken, err := s.customerRepo.EmailTaken(ctx, profile.Email, id)
		if err != nil {
			return nil, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return nil, apperrors.AlreadyExists("customer", "email", profile.Email)
		}
	}

	customer.ApplyProfile(profile)
	customer.UpdatedAt = s.now()

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, fmt.Errorf("update customer: %w", err)
	}

	if err := s.producer.PublishCustomerUpdated(ctx, customer); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerUpdated, customer.ID, err)
	}

	s.logger.InfoContext(ctx, "customer updated", slog.String("customer_id", customer.ID))

	return customer, nil
}

// Delete removes a customer. Addresses and memberships go with it.
func (s *CustomerService) Delete(ctx context.Context, id string) error {
	if err := s.customerRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete customer: %w", err)
	}

	if err := s.producer.PublishCustomerDeleted(ctx, id); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerDeleted, id, err)
	}

	s.logger.InfoContext(ctx, "customer deleted", slog.String("customer_id", id))
	return nil
}

// ReplaceGroups sets the customer's group memberships to exactly groupIDs.
// Every id is resolved first, so an unknown group leaves the memberships
// untouched.
func (s *CustomerService) ReplaceGroups(ctx context.Context, customerID string, groupIDs []string) (*domain.Customer, error) {
	seen := make(map[string]bool, len(groupIDs))
	ids := make([]string, 0, len(groupIDs))
	for _, id := range groupIDs {
		if seen[id] {
			continue
		}
		if _, err := s.groupRepo.GetByID(ctx, id); err != nil {
			return nil, fmt.Errorf("resolve customer group: %w", err)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	if err := s.customerRepo.ReplaceGroups(ctx, customerID, ids); err != nil {
		return nil, fmt.Errorf("replace customer groups: %w", err)
	}

	customer, err := s.customerRepo.GetByID(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}

	if err := s.producer.PublishCustomerUpdated(ctx, customer); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerUpdated, customer.ID, err)
	}

	s.logger.InfoContext(ctx, "customer groups replaced",
		slog.String("customer_id", customerID),
		slog.Int("group_count", len(ids)),
	)

	return customer, nil
}
