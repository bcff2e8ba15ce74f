package as400

import (
	"context"

	"github.com/phrazzld/as400-api/internal/domain"
)

// Client is the set of host operations the service layer depends on.
type Client interface {
	// RunCommand executes a single CL command. When the command fails the
	// result is still returned alongside the error so callers can record
	// the host messages.
	RunCommand(ctx context.Context, cmd string) (*domain.CommandResult, error)

	// Query runs one SQL statement with positional parameters and returns
	// at most maxRows rows.
	Query(ctx context.Context, sql string, params []string, maxRows int) (*domain.QueryResult, error)

	// Ping verifies the host connection is usable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}
