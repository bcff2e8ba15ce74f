package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/service/auth"
	"github.com/phrazzld/as400-api/internal/store"
)

// dummyHash is compared against when the email is unknown so a failed
// login takes as long whether or not the account exists.
var dummyHash = sync.OnceValue(func() string {
	hash, _ := auth.HashPassword("no-such-user-password", bcrypt.DefaultCost)
	return hash
})

// TokenPair is the result of a login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Role         domain.Role
}

// AuthService authenticates users and issues tokens.
type AuthService struct {
	users         store.UserStore
	jwt           auth.JWTService
	verifier      auth.PasswordVerifier
	tokenLifetime time.Duration
	now           func() time.Time
	logger        *slog.Logger
}

// NewAuthService creates an AuthService. tokenLifetime is used to report
// the access token expiry.
func NewAuthService(
	users store.UserStore,
	jwt auth.JWTService,
	verifier auth.PasswordVerifier,
	tokenLifetime time.Duration,
	logger *slog.Logger,
) (*AuthService, error) {
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", domain.ErrValidation)
	}
	if jwt == nil {
		return nil, domain.NewValidationError("jwt", "cannot be nil", domain.ErrValidation)
	}
	if verifier == nil {
		return nil, domain.NewValidationError("verifier", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthService{
		users:         users,
		jwt:           jwt,
		verifier:      verifier,
		tokenLifetime: tokenLifetime,
		now:           time.Now,
		logger:        logger.With("component", "auth_service"),
	}, nil
}

// Login checks email and password and returns a new token pair. Any
// mismatch returns auth.ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			_ = s.verifier.Compare(dummyHash(), password)
			log.Debug("login for unknown email")
			return nil, auth.ErrInvalidCredentials
		}
		log.Error("failed to load user for login", "error", redact.Error(err))
		return nil, NewServiceError("login", "failed to load user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		log.Debug("login with wrong password", "user_id", user.ID)
		return nil, auth.ErrInvalidCredentials
	}

	return s.issue(ctx, user)
}

// Refresh exchanges a valid refresh token for a new pair. The role is read
// from the store so role changes take effect on the next refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, auth.ErrInvalidRefreshToken
		}
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to load user for refresh",
			"error", redact.Error(err))
		return nil, NewServiceError("refresh", "failed to load user", err)
	}

	return s.issue(ctx, user)
}

func (s *AuthService) issue(ctx context.Context, user *domain.User) (*TokenPair, error) {
	access, err := s.jwt.GenerateToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, NewServiceError("issue_tokens", "failed to generate access token", err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, NewServiceError("issue_tokens", "failed to generate refresh token", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    s.now().Add(s.tokenLifetime).UTC(),
		Role:         user.Role,
	}, nil
}

// String hides tokens from accidental logging.
func (p TokenPair) String() string {
	return fmt.Sprintf("TokenPair{role: %s, expires_at: %s}", p.Role, p.ExpiresAt.Format(time.RFC3339))
}
