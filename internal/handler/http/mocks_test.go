package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	pkgkafka "github.com/Astrolithia/qvtu-shopping/pkg/kafka"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.UserAccount) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.UserAccount, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserAccount), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.UserAccount, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UserAccount), args.Error(1)
}

func (m *mockUserRepo) TouchLastLogin(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockUserRepo) List(ctx context.Context, offset, limit int) ([]domain.UserAccount, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.UserAccount), args.Int(1), args.Error(2)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.UserAccount) error {
	return m.Called(ctx, user).Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockCustomerRepo struct {
	mock.Mock
}

func (m *mockCustomerRepo) CreateWithAccount(ctx context.Context, user *domain.UserAccount, customer *domain.Customer) error {
	return m.Called(ctx, user, customer).Error(0)
}

func (m *mockCustomerRepo) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Customer), args.Error(1)
}

func (m *mockCustomerRepo) ListByUserIDs(ctx context.Context, userIDs []string) ([]domain.Customer, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Customer), args.Error(1)
}

func (m *mockCustomerRepo) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	args := m.Called(ctx, email, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *mockCustomerRepo) List(ctx context.Context, filter repository.CustomerFilter) ([]domain.Customer, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Customer), args.Int(1), args.Error(2)
}

func (m *mockCustomerRepo) Update(ctx context.Context, customer *domain.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

func (m *mockCustomerRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCustomerRepo) ReplaceGroups(ctx context.Context, customerID string, groupIDs []string) error {
	return m.Called(ctx, customerID, groupIDs).Error(0)
}

type mockAddressRepo struct {
	mock.Mock
}

func (m *mockAddressRepo) List(ctx context.Context, customerID string) ([]domain.Address, error) {
	args := m.Called(ctx, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Address), args.Error(1)
}

func (m *mockAddressRepo) Mutate(ctx context.Context, customerID string, fn func(*domain.AddressBook) error) error {
	args := m.Called(ctx, customerID)
	if err := args.Error(1); err != nil {
		return err
	}
	return fn(args.Get(0).(*domain.AddressBook))
}

type mockGroupRepo struct {
	mock.Mock
}

func (m *mockGroupRepo) Create(ctx context.Context, group *domain.CustomerGroup) error {
	return m.Called(ctx, group).Error(0)
}

func (m *mockGroupRepo) GetByID(ctx context.Context, id string) (*domain.CustomerGroup, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CustomerGroup), args.Error(1)
}

func (m *mockGroupRepo) List(ctx context.Context, offset, limit int) ([]domain.CustomerGroup, int, error) {
	args := m.Called(ctx, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.CustomerGroup), args.Int(1), args.Error(2)
}

func (m *mockGroupRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepo) Mutate(ctx context.Context, id string, fn func(*domain.Order) error) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	order := args.Get(0).(*domain.Order)
	if err := fn(order); err != nil {
		return nil, err
	}
	return order, args.Error(1)
}

type mockIdempotency struct {
	mock.Mock
}

func (m *mockIdempotency) Reserve(ctx context.Context, key, orderID string) (string, bool, error) {
	args := m.Called(ctx, key, orderID)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockIdempotency) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
