package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// UserService implements account self-service and account administration.
type UserService struct {
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	hasher       PasswordHasher
	producer     *event.Producer
	logger       *slog.Logger
	now          func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(
	userRepo repository.UserRepository,
	customerRepo repository.CustomerRepository,
	hasher PasswordHasher,
	producer *event.Producer,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		hasher:       hasher,
		producer:     producer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// UserDetails is an account together with its customer profile. Customer is
// nil for accounts without one, such as admins.
type UserDetails struct {
	Account  *domain.UserAccount
	Customer *domain.Customer
}

// UpdateProfileInput holds the profile fields a user may change. Nil fields
// are left alone.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	AvatarURL *string
}

func (in UpdateProfileInput) isEmpty() bool {
	return in.FirstName == nil && in.LastName == nil && in.Phone == nil && in.AvatarURL == nil
}

func (in UpdateProfileInput) validate() error {
	if in.FirstName != nil && strings.TrimSpace(*in.FirstName) == "" {
		return apperrors.InvalidInput("first name cannot be empty")
	}
	if in.LastName != nil && strings.TrimSpace(*in.LastName) == "" {
		return apperrors.InvalidInput("last name cannot be empty")
	}
	return nil
}

func (in UpdateProfileInput) apply(c *domain.Customer) {
	if in.FirstName != nil {
		c.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		c.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.AvatarURL != nil {
		c.AvatarURL = strings.TrimSpace(*in.AvatarURL)
	}
}

// UpdateUserInput is an administrator's change to an account. Nil Roles
// keeps the current roles.
type UpdateUserInput struct {
	UpdateProfileInput
	IsActive *bool
	Roles    []string
}

// Get returns an account with its profile.
func (s *UserService) Get(ctx context.Context, id string) (*UserDetails, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	customers, err := s.customerRepo.ListByUserIDs(ctx, []string{id})
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}

	details := &UserDetails{Account: user}
	if len(customers) > 0 {
		details.Customer = &customers[0]
	}
	return details, nil
}

// List returns a page of accounts with their profiles and the total count.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]UserDetails, int, error) {
	users, total, err := s.userRepo.List(ctx, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	customers, err := s.customerRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("list user profiles: %w", err)
	}
	byUser := make(map[string]*domain.Customer, len(customers))
	for i := range customers {
		if customers[i].UserID != nil {
			byUser[*customers[i].UserID] = &customers[i]
		}
	}

	details := make([]UserDetails, 0, len(users))
	for i := range users {
		details = append(details, UserDetails{Account: &users[i], Customer: byUser[users[i].ID]})
	}
	return details, total, nil
}

// UpdateProfile changes the caller's own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*UserDetails, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	details, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.saveProfile(ctx, details, input); err != nil {
		return nil, err
	}
	return details, nil
}

// Update applies an administrator's change to an account and its profile.
// Everything is validated before anything is written.
func (s *UserService) Update(ctx context.Context, id string, input UpdateUserInput) (*UserDetails, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}
	roles, err := normalizeRoles(input.Roles)
	if err != nil {
		return nil, err
	}

	details, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !input.isEmpty() && details.Customer == nil {
		return nil, apperrors.InvalidInput("account has no customer profile")
	}

	account := details.Account
	changed := false
	if input.IsActive != nil && *input.IsActive != account.IsActive {
		account.IsActive = *input.IsActive
		changed = true
	}
	if roles != nil && !slices.Equal(roles, account.Roles) {
		account.Roles = roles
		changed = true
	}
	if changed {
		account.UpdatedAt = s.now()
		if err := s.userRepo.Update(ctx, account); err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		s.logger.InfoContext(ctx, "user updated",
			slog.String("user_id", account.ID),
			slog.Bool("is_active", account.IsActive),
			slog.Any("roles", account.Roles),
		)
	}

	if err := s.saveProfile(ctx, details, input.UpdateProfileInput); err != nil {
		return nil, err
	}
	return details, nil
}

// ChangePassword replaces the caller's password after verifying the current one.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, next string) error {
	if current == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if len(next) < minPasswordLength {
		return apperrors.ValidationFailed("new_password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if current == next {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	if err := s.hasher.Verify(user.PasswordHash, current); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()

	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID))
	return nil
}

// Delete removes an account. Its customer profile is kept without a login.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

func (s *UserService) saveProfile(ctx context.Context, details *UserDetails, input UpdateProfileInput) error {
	if input.isEmpty() {
		return nil
	}
	customer := details.Customer
	if customer == nil {
		return apperrors.InvalidInput("account has no customer profile")
	}

	input.apply(customer)
	customer.UpdatedAt = s.now()

	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return fmt.Errorf("update customer: %w", err)
	}

	if err := s.producer.PublishCustomerUpdated(ctx, customer); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerUpdated, customer.ID, err)
	}

	s.logger.InfoContext(ctx, "customer profile updated",
		slog.String("customer_id", customer.ID),
		slog.String("user_id", details.Account.ID),
	)
	return nil
}

// normalizeRoles checks and de-duplicates roles. Nil stays nil; an explicit
// empty list is rejected.
func normalizeRoles(roles []string) ([]string, error) {
	if roles == nil {
		return nil, nil
	}
	if len(roles) == 0 {
		return nil, apperrors.ValidationFailed("roles", "must not be empty")
	}
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.ToLower(strings.TrimSpace(r))
		if !domain.IsValidRole(r) {
			return nil, apperrors.ValidationFailed("roles", fmt.Sprintf("unknown role %q", r))
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out, nil
}
