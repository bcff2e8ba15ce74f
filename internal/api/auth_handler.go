package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/service"
)

// Authenticator logs users in and refreshes their tokens.
// Implemented by *service.AuthService.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*service.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (*service.TokenPair, error)
}

// AuthHandler handles authentication-related API requests.
type AuthHandler struct {
	auth   Authenticator
	logger *slog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		auth:   auth,
		logger: logger.With(slog.String("component", "auth_handler")),
	}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to authenticate user")
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Info("user logged in",
		slog.String("role", string(pair.Role)))
	shared.RespondWithJSON(w, r, http.StatusOK, tokenPairToResponse(pair))
}

// RefreshToken handles POST /api/auth/refresh. Each refresh returns a new
// access and refresh token pair.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req RefreshTokenRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to refresh token")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tokenPairToResponse(pair))
}
