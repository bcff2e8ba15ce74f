package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
)

// HostOperations runs synchronous host operations. Implemented by
// *service.HostService.
type HostOperations interface {
	RunCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.CommandResult, error)
	CallProgram(ctx context.Context, userID uuid.UUID, call domain.ProgramCall) (*domain.CommandResult, error)
	Query(ctx context.Context, userID uuid.UUID, req domain.QueryRequest) (*domain.QueryResult, error)
	SystemStatus(ctx context.Context, userID uuid.UUID) (*domain.QueryResult, error)
	ListObjects(ctx context.Context, userID uuid.UUID, library, objectType string) (*domain.QueryResult, error)
	ActiveJobs(ctx context.Context, userID uuid.UUID, subsystem string) (*domain.QueryResult, error)
	DataArea(ctx context.Context, userID uuid.UUID, library, name string) (*domain.QueryResult, error)
}

// HostHandler exposes host operations over HTTP.
type HostHandler struct {
	host   HostOperations
	logger *slog.Logger
}

// NewHostHandler creates a new HostHandler.
func NewHostHandler(host HostOperations, logger *slog.Logger) *HostHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostHandler{
		host:   host,
		logger: logger.With(slog.String("component", "host_handler")),
	}
}

// RunCommand handles POST /api/as400/commands. A failed command answers
// with the mapped status and the command result.
func (h *HostHandler) RunCommand(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	var req CommandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.host.RunCommand(r.Context(), userID, req.Command)
	if err != nil {
		HandleHostError(w, r, err, result)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// CallProgram handles POST /api/as400/programs/call.
func (h *HostHandler) CallProgram(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	var req ProgramCallRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.host.CallProgram(r.Context(), userID, req.toDomain())
	if err != nil {
		HandleHostError(w, r, err, result)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// Query handles POST /api/as400/query.
func (h *HostHandler) Query(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	var req QueryRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	h.respondQuery(w, r, func() (*domain.QueryResult, error) {
		return h.host.Query(r.Context(), userID, req.toDomain())
	})
}

// SystemStatus handles GET /api/as400/system/status.
func (h *HostHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	h.respondQuery(w, r, func() (*domain.QueryResult, error) {
		return h.host.SystemStatus(r.Context(), userID)
	})
}

// ListObjects handles GET /api/as400/libraries/{library}/objects?type=.
func (h *HostHandler) ListObjects(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	library := chi.URLParam(r, "library")
	objectType := r.URL.Query().Get("type")
	h.respondQuery(w, r, func() (*domain.QueryResult, error) {
		return h.host.ListObjects(r.Context(), userID, library, objectType)
	})
}

// ActiveJobs handles GET /api/as400/jobs/active?subsystem=.
func (h *HostHandler) ActiveJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	subsystem := r.URL.Query().Get("subsystem")
	h.respondQuery(w, r, func() (*domain.QueryResult, error) {
		return h.host.ActiveJobs(r.Context(), userID, subsystem)
	})
}

// DataArea handles GET /api/as400/data-areas/{library}/{name}.
func (h *HostHandler) DataArea(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r, logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}
	library := chi.URLParam(r, "library")
	name := chi.URLParam(r, "name")
	h.respondQuery(w, r, func() (*domain.QueryResult, error) {
		return h.host.DataArea(r.Context(), userID, library, name)
	})
}

func (h *HostHandler) respondQuery(w http.ResponseWriter, r *http.Request, run func() (*domain.QueryResult, error)) {
	result, err := run()
	if err != nil {
		HandleHostError(w, r, err, nil)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, result)
}
