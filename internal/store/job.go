package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
)

// JobStore reads async jobs for the API. Jobs are written by the task runner.
type JobStore interface {
	// GetJob returns the job with id. Returns ErrJobNotFound if it does not exist.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.Job, error)
}
