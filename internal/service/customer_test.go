package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	"github.com/Astrolithia/qvtu-shopping/internal/repository"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

func newTestCustomerService(customers *mockCustomerRepository, groups *mockGroupRepository) (*CustomerService, *recordingPublisher) {
	producer, rec := newTestProducer()
	svc := NewCustomerService(customers, groups, auth.NewBcryptHasher(bcrypt.MinCost), producer, newTestLogger())
	return svc, rec
}

func TestCustomerService_Create_GeneratesPassword(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, rec := newTestCustomerService(customers, new(mockGroupRepository))

	var generated string
	svc.genPassword = func(n int) (string, error) {
		p, err := auth.GeneratePassword(n)
		generated = p
		return p, err
	}

	customers.On("EmailTaken", ctx, "grace@example.com", "").Return(false, nil)
	customers.On("CreateWithAccount", ctx, mock.AnythingOfType("*domain.UserAccount"), mock.AnythingOfType("*domain.Customer")).Return(nil)

	customer, err := svc.Create(ctx, CreateCustomerInput{
		Profile: domain.CustomerProfile{Email: "grace@example.com", FirstName: "Grace", LastName: "Hopper"},
	})
	require.NoError(t, err)

	assert.Len(t, generated, auth.GeneratedPasswordLength)
	user := customers.Calls[1].Arguments.Get(1).(*domain.UserAccount)
	assert.NoError(t, auth.NewBcryptHasher(bcrypt.MinCost).Verify(user.PasswordHash, generated))
	assert.Equal(t, []string{domain.RoleCustomer}, user.Roles)
	assert.Equal(t, user.ID, *customer.UserID)
	assert.Equal(t, "Grace Hopper", customer.FullName())
	assert.Equal(t, []string{event.TopicCustomerCreated}, rec.published())
}

func TestCustomerService_Create_Conflict(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	customers.On("EmailTaken", ctx, "grace@example.com", "").Return(true, nil)

	_, err := svc.Create(ctx, CreateCustomerInput{Profile: domain.CustomerProfile{Email: "grace@example.com"}, Password: "pw"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	customers.AssertNotCalled(t, "CreateWithAccount", mock.Anything, mock.Anything, mock.Anything)
}

func TestCustomerService_Create_PublishFailureDoesNotFail(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, rec := newTestCustomerService(customers, new(mockGroupRepository))
	rec.err = errors.New("broker down")

	customers.On("EmailTaken", ctx, "grace@example.com", "").Return(false, nil)
	customers.On("CreateWithAccount", ctx, mock.Anything, mock.Anything).Return(nil)

	customer, err := svc.Create(ctx, CreateCustomerInput{Profile: domain.CustomerProfile{Email: "grace@example.com"}, Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, customer.ID)
}

func TestCustomerService_Update_OverwritesProfile(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, rec := newTestCustomerService(customers, new(mockGroupRepository))

	existing := &domain.Customer{
		ID:                       "c1",
		Email:                    "old@example.com",
		FirstName:                "Old",
		Phone:                    "123",
		DefaultShippingAddressID: strPtr("a1"),
		Groups:                   []domain.CustomerGroup{{ID: "g1", Name: "VIP"}},
	}
	customers.On("GetByID", ctx, "c1").Return(existing, nil)
	customers.On("EmailTaken", ctx, "new@example.com", "c1").Return(false, nil)
	customers.On("Update", ctx, existing).Return(nil)

	updated, err := svc.Update(ctx, "c1", domain.CustomerProfile{Email: "new@example.com", FirstName: "New"})
	require.NoError(t, err)

	assert.Equal(t, "new@example.com", updated.Email)
	assert.Equal(t, "New", updated.FirstName)
	assert.Empty(t, updated.Phone)
	assert.Equal(t, "a1", *updated.DefaultShippingAddressID)
	assert.Len(t, updated.Groups, 1)
	assert.Equal(t, []string{event.TopicCustomerUpdated}, rec.published())
	customers.AssertExpectations(t)
}

func TestCustomerService_Update_SameEmailSkipsCheck(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	existing := &domain.Customer{ID: "c1", Email: "same@example.com"}
	customers.On("GetByID", ctx, "c1").Return(existing, nil)
	customers.On("Update", ctx, existing).Return(nil)

	_, err := svc.Update(ctx, "c1", domain.CustomerProfile{Email: "same@example.com", LastName: "X"})
	require.NoError(t, err)
	customers.AssertNotCalled(t, "EmailTaken", mock.Anything, mock.Anything, mock.Anything)
}

func TestCustomerService_Update_EmailConflict(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	customers.On("GetByID", ctx, "c1").Return(&domain.Customer{ID: "c1", Email: "old@example.com"}, nil)
	customers.On("EmailTaken", ctx, "taken@example.com", "c1").Return(true, nil)

	_, err := svc.Update(ctx, "c1", domain.CustomerProfile{Email: "taken@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	customers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestCustomerService_Update_NotFound(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	customers.On("GetByID", ctx, "missing").Return(nil, apperrors.NotFound("customer", "missing"))

	_, err := svc.Update(ctx, "missing", domain.CustomerProfile{Email: "x@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCustomerService_Delete(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, rec := newTestCustomerService(customers, new(mockGroupRepository))

	customers.On("Delete", ctx, "c1").Return(nil)

	require.NoError(t, svc.Delete(ctx, "c1"))
	assert.Equal(t, []string{event.TopicCustomerDeleted}, rec.published())
}

func TestCustomerService_List(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	filter := repository.CustomerFilter{Query: "ada", Offset: 0, Limit: 20}
	customers.On("List", ctx, filter).Return([]domain.Customer{{ID: "c1"}}, 1, nil)

	got, total, err := svc.List(ctx, filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, got, 1)
}

func TestCustomerService_ReplaceGroups(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	groups := new(mockGroupRepository)
	svc, _ := newTestCustomerService(customers, groups)

	groups.On("GetByID", ctx, "g1").Return(&domain.CustomerGroup{ID: "g1"}, nil)
	groups.On("GetByID", ctx, "g2").Return(&domain.CustomerGroup{ID: "g2"}, nil)
	customers.On("ReplaceGroups", ctx, "c1", []string{"g1", "g2"}).Return(nil)
	customers.On("GetByID", ctx, "c1").Return(&domain.Customer{
		ID:     "c1",
		Groups: []domain.CustomerGroup{{ID: "g1"}, {ID: "g2"}},
	}, nil)

	customer, err := svc.ReplaceGroups(ctx, "c1", []string{"g1", "g2", "g1"})
	require.NoError(t, err)
	assert.Len(t, customer.Groups, 2)
	customers.AssertExpectations(t)
	groups.AssertNumberOfCalls(t, "GetByID", 2)
}

func TestCustomerService_ReplaceGroups_UnknownGroupLeavesMembership(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	groups := new(mockGroupRepository)
	svc, _ := newTestCustomerService(customers, groups)

	groups.On("GetByID", ctx, "g1").Return(&domain.CustomerGroup{ID: "g1"}, nil)
	groups.On("GetByID", ctx, "nope").Return(nil, apperrors.NotFound("customer group", "nope"))

	_, err := svc.ReplaceGroups(ctx, "c1", []string{"g1", "nope"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	customers.AssertNotCalled(t, "ReplaceGroups", mock.Anything, mock.Anything, mock.Anything)
}

func TestCustomerService_ReplaceGroups_EmptyClears(t *testing.T) {
	ctx := context.Background()
	customers := new(mockCustomerRepository)
	svc, _ := newTestCustomerService(customers, new(mockGroupRepository))

	customers.On("ReplaceGroups", ctx, "c1", []string{}).Return(nil)
	customers.On("GetByID", ctx, "c1").Return(&domain.Customer{ID: "c1", Groups: []domain.CustomerGroup{}}, nil)

	customer, err := svc.ReplaceGroups(ctx, "c1", nil)
	require.NoError(t, err)
	assert.Empty(t, customer.Groups)
}
