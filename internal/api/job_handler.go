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

// JobOperations submits and looks up asynchronous jobs. Implemented by
// *service.JobService.
type JobOperations interface {
	SubmitCommand(ctx context.Context, userID uuid.UUID, cmd string) (*domain.Job, error)
	GetJob(ctx context.Context, userID, jobID uuid.UUID) (*domain.Job, error)
}

// JobHandler handles asynchronous job requests.
type JobHandler struct {
	jobs   JobOperations
	logger *slog.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(jobs JobOperations, logger *slog.Logger) *JobHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobHandler{
		jobs:   jobs,
		logger: logger.With(slog.String("component", "job_handler")),
	}
}

// SubmitCommand handles POST /api/as400/commands/async. The job is queued
// and answered with 202 and a Location header pointing at the job.
func (h *JobHandler) SubmitCommand(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	userID, ok := requireUserID(w, r, log)
	if !ok {
		return
	}
	var req CommandRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	job, err := h.jobs.SubmitCommand(r.Context(), userID, req.Command)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to queue command")
		return
	}

	log.Debug("command queued", slog.String("job_id", job.ID.String()))
	w.Header().Set("Location", "/api/jobs/"+job.ID.String())
	shared.RespondWithJSON(w, r, http.StatusAccepted, jobToResponse(job))
}

// GetJob handles GET /api/jobs/{id}.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	userID, jobID, ok := handleUserIDAndPathUUID(w, r, "id", logger.FromContextOrDefault(r.Context(), h.logger))
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(r.Context(), userID, jobID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to get job")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}
