package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
)

// AuditReader lists a user's audit entries. Implemented by *service.AuditService.
type AuditReader interface {
	ListForUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error)
}

// AuditHandler serves the caller's own audit trail.
type AuditHandler struct {
	audit  AuditReader
	logger *slog.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit AuditReader, logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{
		audit:  audit,
		logger: logger.With(slog.String("component", "audit_handler")),
	}
}

// ListMine handles GET /api/audit?limit=.
func (h *AuditHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	entries, err := h.audit.ListForUser(r.Context(), userID, limit)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to load audit entries")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, auditEntriesToResponse(entries))
}
