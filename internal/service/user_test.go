package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Astrolithia/qvtu-shopping/internal/auth"
	"github.com/Astrolithia/qvtu-shopping/internal/domain"
	"github.com/Astrolithia/qvtu-shopping/internal/event"
	apperrors "github.com/Astrolithia/qvtu-shopping/pkg/errors"
)

func newTestUserService(users *mockUserRepository, customers *mockCustomerRepository) (*UserService, *recordingPublisher) {
	producer, rec := newTestProducer()
	svc := NewUserService(users, customers, auth.NewBcryptHasher(bcrypt.MinCost), producer, newTestLogger())
	return svc, rec
}

func sampleUser(t *testing.T, password string) *domain.UserAccount {
	t.Helper()
	return &domain.UserAccount{
		ID:           "u1",
		Email:        "ada@example.com",
		PasswordHash: hashForTest(t, password),
		Roles:        []string{domain.RoleCustomer},
		IsActive:     true,
	}
}

func TestUserService_Get(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, _ := newTestUserService(users, customers)

	users.On("GetByID", ctx, "u1").Return(sampleUser(t, "secret-pass"), nil)
	customers.On("ListByUserIDs", ctx, []string{"u1"}).
		Return([]domain.Customer{{ID: "c1", UserID: strPtr("u1"), FirstName: "Ada"}}, nil)

	details, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", details.Account.Email)
	require.NotNil(t, details.Customer)
	assert.Equal(t, "Ada", details.Customer.FirstName)
}

func TestUserService_Get_AdminWithoutProfile(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, _ := newTestUserService(users, customers)

	users.On("GetByID", ctx, "u1").Return(&domain.UserAccount{ID: "u1", Roles: []string{domain.RoleAdmin}}, nil)
	customers.On("ListByUserIDs", ctx, []string{"u1"}).Return([]domain.Customer{}, nil)

	details, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, details.Customer)
}

func TestUserService_Get_NotFound(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	svc, _ := newTestUserService(users, new(mockCustomerRepository))

	users.On("GetByID", ctx, "ghost").Return(nil, apperrors.NotFound("user", "ghost"))

	_, err := svc.Get(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, apperrors.HTTPStatus(err))
}

func TestUserService_List_JoinsProfiles(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, _ := newTestUserService(users, customers)

	users.On("List", ctx, 0, 20).Return([]domain.UserAccount{{ID: "u1"}, {ID: "u2"}}, 2, nil)
	customers.On("ListByUserIDs", ctx, []string{"u1", "u2"}).
		Return([]domain.Customer{{ID: "c2", UserID: strPtr("u2")}}, nil)

	details, total, err := svc.List(ctx, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, details, 2)
	assert.Nil(t, details[0].Customer)
	require.NotNil(t, details[1].Customer)
	assert.Equal(t, "c2", details[1].Customer.ID)
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, rec := newTestUserService(users, customers)

	users.On("GetByID", ctx, "u1").Return(sampleUser(t, "secret-pass"), nil)
	customers.On("ListByUserIDs", ctx, []string{"u1"}).
		Return([]domain.Customer{{ID: "c1", UserID: strPtr("u1"), FirstName: "Ada", LastName: "Byron", Phone: "1"}}, nil)
	customers.On("Update", ctx, mock.AnythingOfType("*domain.Customer")).Return(nil)

	details, err := svc.UpdateProfile(ctx, "u1", UpdateProfileInput{
		LastName: strPtr(" Lovelace "),
		Phone:    strPtr(""),
	})
	require.NoError(t, err)

	assert.Equal(t, "Ada", details.Customer.FirstName)
	assert.Equal(t, "Lovelace", details.Customer.LastName)
	assert.Empty(t, details.Customer.Phone)
	assert.False(t, details.Customer.UpdatedAt.IsZero())
	assert.Equal(t, []string{event.TopicCustomerUpdated}, rec.published())
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_UpdateProfile_Rejected(t *testing.T) {
	ctx := context.Background()

	t.Run("empty first name", func(t *testing.T) {
		users := new(mockUserRepository)
		svc, _ := newTestUserService(users, new(mockCustomerRepository))

		_, err := svc.UpdateProfile(ctx, "u1", UpdateProfileInput{FirstName: strPtr("  ")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("account without profile", func(t *testing.T) {
		users := new(mockUserRepository)
		customers := new(mockCustomerRepository)
		svc, _ := newTestUserService(users, customers)
		users.On("GetByID", ctx, "u1").Return(&domain.UserAccount{ID: "u1"}, nil)
		customers.On("ListByUserIDs", ctx, []string{"u1"}).Return([]domain.Customer{}, nil)

		_, err := svc.UpdateProfile(ctx, "u1", UpdateProfileInput{Phone: strPtr("123")})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		customers.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})
}

func TestUserService_Update_AccountFields(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, rec := newTestUserService(users, customers)

	account := &domain.UserAccount{ID: "u1", Roles: []string{domain.RoleCustomer}, IsActive: true}
	users.On("GetByID", ctx, "u1").Return(account, nil)
	customers.On("ListByUserIDs", ctx, []string{"u1"}).Return([]domain.Customer{}, nil)
	users.On("Update", ctx, account).Return(nil)

	details, err := svc.Update(ctx, "u1", UpdateUserInput{
		IsActive: boolPtr(false),
		Roles:    []string{"Admin", "customer", "admin"},
	})
	require.NoError(t, err)

	assert.False(t, details.Account.IsActive)
	assert.Equal(t, []string{domain.RoleAdmin, domain.RoleCustomer}, details.Account.Roles)
	assert.Empty(t, rec.published())
	users.AssertExpectations(t)
}

func TestUserService_Update_NoChangeSkipsWrite(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	customers := new(mockCustomerRepository)
	svc, _ := newTestUserService(users, customers)

	users.On("GetByID", ctx, "u1").Return(&domain.UserAccount{ID: "u1", Roles: []string{domain.RoleCustomer}, IsActive: true}, nil)
	customers.On("ListByUserIDs", ctx, []string{"u1"}).Return([]domain.Customer{}, nil)

	_, err := svc.Update(ctx, "u1", UpdateUserInput{IsActive: boolPtr(true), Roles: []string{"customer"}})
	require.NoError(t, err)
	users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUserService_Update_InvalidRoles(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	svc, _ := newTestUserService(users, new(mockCustomerRepository))

	_, err := svc.Update(ctx, "u1", UpdateUserInput{Roles: []string{"superuser"}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = svc.Update(ctx, "u1", UpdateUserInput{Roles: []string{}})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	users.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestUserService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	svc, _ := newTestUserService(users, new(mockCustomerRepository))

	user := sampleUser(t, "old-password")
	oldHash := user.PasswordHash
	users.On("GetByID", ctx, "u1").Return(user, nil)
	users.On("Update", ctx, user).Return(nil)

	require.NoError(t, svc.ChangePassword(ctx, "u1", "old-password", "new-password"))

	assert.NotEqual(t, oldHash, user.PasswordHash)
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	assert.NoError(t, hasher.Verify(user.PasswordHash, "new-password"))
	assert.Error(t, hasher.Verify(user.PasswordHash, "old-password"))
}

func TestUserService_ChangePassword_Failures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		current string
		next    string
		wantErr error
	}{
		{"missing current", "", "new-password", apperrors.ErrInvalidInput},
		{"short new", "old-password", "short", apperrors.ErrValidationFailed},
		{"unchanged", "old-password", "old-password", apperrors.ErrInvalidInput},
		{"wrong current", "not-my-password", "new-password", apperrors.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(mockUserRepository)
			svc, _ := newTestUserService(users, new(mockCustomerRepository))
			users.On("GetByID", ctx, "u1").Return(sampleUser(t, "old-password"), nil).Maybe()

			err := svc.ChangePassword(ctx, "u1", tt.current, tt.next)
			assert.ErrorIs(t, err, tt.wantErr)
			users.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		})
	}
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	users := new(mockUserRepository)
	svc, _ := newTestUserService(users, new(mockCustomerRepository))

	users.On("Delete", ctx, "u1").Return(nil)
	users.On("Delete", ctx, "ghost").Return(apperrors.NotFound("user", "ghost"))

	require.NoError(t, svc.Delete(ctx, "u1"))
	assert.ErrorIs(t, svc.Delete(ctx, "ghost"), apperrors.ErrNotFound)
}
