package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/service"
	"github.com/phrazzld/as400-api/internal/service/auth"
)

type fakeAuthenticator struct {
	login   func(ctx context.Context, email, password string) (*service.TokenPair, error)
	refresh func(ctx context.Context, refreshToken string) (*service.TokenPair, error)
}

func (f *fakeAuthenticator) Login(ctx context.Context, email, password string) (*service.TokenPair, error) {
	return f.login(ctx, email, password)
}

func (f *fakeAuthenticator) Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error) {
	return f.refresh(ctx, refreshToken)
}

var testExpiry = time.Date(2026, 3, 2, 10, 15, 0, 0, time.UTC)

func testPair() *service.TokenPair {
	return &service.TokenPair{
		AccessToken:  "access.jwt",
		RefreshToken: "refresh.jwt",
		ExpiresAt:    testExpiry,
		Role:         domain.RoleOperator,
	}
}

func authRouter(a Authenticator) http.Handler {
	h := NewAuthHandler(a, nil)
	return newTestRouter(uuid.Nil, func(r chi.Router) {
		r.Post("/api/auth/login", h.Login)
		r.Post("/api/auth/refresh", h.RefreshToken)
	})
}

func TestAuthHandler_Login(t *testing.T) {
	var gotEmail, gotPassword string
	a := &fakeAuthenticator{login: func(_ context.Context, email, password string) (*service.TokenPair, error) {
		gotEmail, gotPassword = email, password
		return testPair(), nil
	}}

	rec := doRequest(t, authRouter(a), http.MethodPost, "/api/auth/login",
		`{"email":"ops@example.com","password":"correct horse"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ops@example.com", gotEmail)
	assert.Equal(t, "correct horse", gotPassword)
	resp := decodeBody[TokenResponse](t, rec)
	assert.Equal(t, TokenResponse{
		AccessToken:  "access.jwt",
		RefreshToken: "refresh.jwt",
		TokenType:    "Bearer",
		ExpiresAt:    "2026-03-02T10:15:00Z",
		Role:         domain.RoleOperator,
	}, resp)
}

func TestAuthHandler_LoginErrors(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{"bad credentials", `{"email":"ops@example.com","password":"nope"}`, auth.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"invalid email", `{"email":"ops","password":"nope"}`, nil, http.StatusBadRequest, "Invalid email: invalid email format"},
		{"missing password", `{"email":"ops@example.com"}`, nil, http.StatusBadRequest, "Invalid password: required field"},
		{"store down", `{"email":"ops@example.com","password":"nope"}`, &service.ServiceError{Operation: "login", Message: "failed to look up user"}, http.StatusInternalServerError, "Failed to authenticate user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAuthenticator{login: func(context.Context, string, string) (*service.TokenPair, error) {
				if tt.err == nil {
					t.Fatal("invalid requests must not reach the service")
				}
				return nil, tt.err
			}}

			rec := doRequest(t, authRouter(a), http.MethodPost, "/api/auth/login", tt.body)

			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decodeBody[shared.ErrorResponse](t, rec)
			assert.Equal(t, tt.wantMessage, resp.Error)
			assert.NotContains(t, rec.Body.String(), "nope")
		})
	}
}

func TestAuthHandler_Refresh(t *testing.T) {
	a := &fakeAuthenticator{refresh: func(_ context.Context, token string) (*service.TokenPair, error) {
		if token != "refresh.jwt" {
			return nil, auth.ErrInvalidRefreshToken
		}
		return testPair(), nil
	}}
	router := authRouter(a)

	rec := doRequest(t, router, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"refresh.jwt"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "access.jwt", decodeBody[TokenResponse](t, rec).AccessToken)

	rec = doRequest(t, router, http.MethodPost, "/api/auth/refresh", `{"refresh_token":"forged"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Invalid refresh token", decodeBody[shared.ErrorResponse](t, rec).Error)

	rec = doRequest(t, router, http.MethodPost, "/api/auth/refresh", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
