package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/mocks"
	"github.com/phrazzld/as400-api/internal/service/auth"
)

const (
	testEmail    = "operator@example.com"
	testPassword = "correct horse battery"
)

func newAuthService(t *testing.T, users *mocks.MockUserStore, jwt *mocks.MockJWTService, verifier auth.PasswordVerifier) *AuthService {
	t.Helper()
	svc, err := NewAuthService(users, jwt, verifier, 15*time.Minute, nil)
	require.NoError(t, err)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	return svc
}

func TestNewAuthService_Validation(t *testing.T) {
	users := mocks.NewMockUserStore()
	jwt := &mocks.MockJWTService{}
	verifier := &mocks.MockPasswordVerifier{}

	_, err := NewAuthService(nil, jwt, verifier, time.Minute, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewAuthService(users, nil, verifier, time.Minute, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = NewAuthService(users, jwt, nil, time.Minute, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestAuthService_Login(t *testing.T) {
	users := mocks.NewMockUserStore()
	user := users.AddUser(testEmail, testPassword, domain.RoleOperator)

	var gotRole domain.Role
	jwt := &mocks.MockJWTService{
		GenerateTokenFn: func(_ context.Context, userID uuid.UUID, role domain.Role) (string, error) {
			assert.Equal(t, user.ID, userID)
			gotRole = role
			return "access-token", nil
		},
		RefreshToken: "refresh-token",
	}
	svc := newAuthService(t, users, jwt, auth.NewBcryptVerifier())

	pair, err := svc.Login(context.Background(), testEmail, testPassword)

	require.NoError(t, err)
	assert.Equal(t, "access-token", pair.AccessToken)
	assert.Equal(t, "refresh-token", pair.RefreshToken)
	assert.Equal(t, domain.RoleOperator, pair.Role)
	assert.Equal(t, domain.RoleOperator, gotRole)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 15, 0, 0, time.UTC), pair.ExpiresAt)
}

func TestAuthService_LoginRejected(t *testing.T) {
	users := mocks.NewMockUserStore()
	users.AddUser(testEmail, testPassword, domain.RoleReader)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", testEmail, "not the password"},
		{"unknown email", "nobody@example.com", testPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := &mocks.MockPasswordVerifier{ShouldSucceed: false}
			svc := newAuthService(t, users, &mocks.MockJWTService{Token: "unused"}, verifier)

			pair, err := svc.Login(context.Background(), tt.email, tt.password)

			assert.Nil(t, pair)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
			assert.Equal(t, 1, verifier.CompareCallCount, "a hash is compared even for unknown emails")
		})
	}
}

func TestAuthService_LoginStoreFailure(t *testing.T) {
	users := mocks.NewMockUserStore()
	users.GetByEmailFn = func(context.Context, string) (*domain.User, error) {
		return nil, errors.New("connection refused")
	}
	svc := newAuthService(t, users, &mocks.MockJWTService{}, &mocks.MockPasswordVerifier{})

	_, err := svc.Login(context.Background(), testEmail, testPassword)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestAuthService_LoginTokenFailure(t *testing.T) {
	users := mocks.NewMockUserStore()
	users.AddUser(testEmail, testPassword, domain.RoleReader)
	jwt := &mocks.MockJWTService{Err: errors.New("signing failed")}
	svc := newAuthService(t, users, jwt, &mocks.MockPasswordVerifier{ShouldSucceed: true})

	_, err := svc.Login(context.Background(), testEmail, testPassword)

	var svcErr *ServiceError
	require.ErrorAs(t, err, &svcErr)
	assert.Equal(t, "issue_tokens", svcErr.Operation)
}

func TestAuthService_Refresh(t *testing.T) {
	users := mocks.NewMockUserStore()
	user := users.AddUser(testEmail, testPassword, domain.RoleReader)

	var issuedRole domain.Role
	jwt := &mocks.MockJWTService{
		ValidateRefreshTokenFn: func(_ context.Context, token string) (*auth.Claims, error) {
			if token != "refresh-1" {
				return nil, auth.ErrInvalidRefreshToken
			}
			// the token still carries the role it was issued with
			return &auth.Claims{UserID: user.ID, Role: domain.RoleReader, TokenType: auth.TokenTypeRefresh}, nil
		},
		GenerateTokenFn: func(_ context.Context, _ uuid.UUID, role domain.Role) (string, error) {
			issuedRole = role
			return "access-2", nil
		},
		RefreshToken: "refresh-2",
	}
	svc := newAuthService(t, users, jwt, &mocks.MockPasswordVerifier{})

	user.Role = domain.RoleOperator
	pair, err := svc.Refresh(context.Background(), "refresh-1")

	require.NoError(t, err)
	assert.Equal(t, "access-2", pair.AccessToken)
	assert.Equal(t, "refresh-2", pair.RefreshToken)
	assert.Equal(t, domain.RoleOperator, issuedRole, "role is re-read from the store")
	assert.Equal(t, domain.RoleOperator, pair.Role)
}

func TestAuthService_RefreshRejected(t *testing.T) {
	users := mocks.NewMockUserStore()

	t.Run("invalid token", func(t *testing.T) {
		jwt := &mocks.MockJWTService{ValidateErr: auth.ErrExpiredRefreshToken}
		svc := newAuthService(t, users, jwt, &mocks.MockPasswordVerifier{})

		_, err := svc.Refresh(context.Background(), "expired")

		assert.ErrorIs(t, err, auth.ErrExpiredRefreshToken)
	})

	t.Run("deleted user", func(t *testing.T) {
		jwt := &mocks.MockJWTService{Claims: &auth.Claims{UserID: uuid.New(), Role: domain.RoleReader}}
		svc := newAuthService(t, users, jwt, &mocks.MockPasswordVerifier{})

		_, err := svc.Refresh(context.Background(), "orphan")

		assert.ErrorIs(t, err, auth.ErrInvalidRefreshToken)
	})
}

func TestTokenPair_StringHidesTokens(t *testing.T) {
	pair := TokenPair{AccessToken: "secret-access", RefreshToken: "secret-refresh", Role: domain.RoleReader}

	s := pair.String()

	assert.False(t, strings.Contains(s, "secret"))
	assert.Contains(t, s, "reader")
}
