package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

// AuthService registers accounts and issues access tokens.
type AuthService struct {
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	hasher       PasswordHasher
	tokens       TokenIssuer
	producer     *event.Producer
	logger       *slog.Logger
	now          func() time.Time
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	customerRepo repository.CustomerRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	producer *event.Producer,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		hasher:       hasher,
		tokens:       tokens,
		producer:     producer,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds the parameters for self-registration.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

// LoginInput holds the parameters for login.
type LoginInput struct {
	Email    string
	Password string
}

// Register creates a customer with a login account and returns a token for it.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Customer, *domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" {
		return nil, nil, apperrors.InvalidInput("email is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, nil, apperrors.ValidationFailed("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	taken, err := s.customerRepo.EmailTaken(ctx, email, "")
	if err != nil {
		return nil, nil, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return nil, nil, apperrors.AlreadyExists("customer", "email", email)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, customer := newCustomerAccount(s.now(), email, hash, domain.CustomerProfile{
		Email:     email,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
	})
	if err := s.customerRepo.CreateWithAccount(ctx, user, customer); err != nil {
		return nil, nil, fmt.Errorf("create customer: %w", err)
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	if err := s.producer.PublishCustomerCreated(ctx, customer); err != nil {
		logPublishError(ctx, s.logger, event.TopicCustomerCreated, customer.ID, err)
	}

	s.logger.InfoContext(ctx, "customer registered",
		slog.String("customer_id", customer.ID),
		slog.String("user_id", user.ID),
	)

	return customer, tokens, nil
}

// Login verifies credentials and returns an access token.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.UserAccount, *domain.TokenPair, error) {
	email := normalizeEmail(input.Email)
	if email == "" || input.Password == "" {
		return nil, nil, apperrors.InvalidInput("email and password are required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.Unauthorized("invalid email or password")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	if err := s.hasher.Verify(user.PasswordHash, input.Password); err != nil {
		return nil, nil, apperrors.Unauthorized("invalid email or password")
	}
	if !user.IsActive {
		return nil, nil, apperrors.Unauthorized("account is deactivated")
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, nil, err
	}

	// A missed timestamp is not worth failing the login.
	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.WarnContext(ctx, "failed to record last login",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))

	return user, tokens, nil
}

// CreateAdmin creates an active admin account without a customer profile.
func (s *AuthService) CreateAdmin(ctx context.Context, email, password string) (*domain.UserAccount, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, apperrors.InvalidInput("email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.ValidationFailed("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.UserAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{domain.RoleAdmin},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create admin: %w", err)
	}

	s.logger.InfoContext(ctx, "admin account created", slog.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) issue(user *domain.UserAccount) (*domain.TokenPair, error) {
	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.Roles)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}
	return &domain.TokenPair{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// newCustomerAccount builds a customer-role account and the profile that
// points at it.
func newCustomerAccount(now time.Time, email, passwordHash string, profile domain.CustomerProfile) (*domain.UserAccount, *domain.Customer) {
	user := &domain.UserAccount{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		Roles:        []string{domain.RoleCustomer},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	customer := &domain.Customer{
		ID:         uuid.NewString(),
		UserID:     &user.ID,
		HasAccount: true,
		Groups:     []domain.CustomerGroup{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	customer.ApplyProfile(profile)
	return user, customer
}
