package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create validates and saves a new user, hashing a plaintext Password
	// if one is set. Returns ErrEmailExists if the email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique ID.
	// Returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	// Returns ErrUserNotFound if the user does not exist.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update replaces the role and password of an existing user, hashing a
	// plaintext Password if one is set. Returns ErrUserNotFound if the user
	// does not exist.
	Update(ctx context.Context, user *domain.User) error

	// WithTx returns a UserStore that runs its queries inside tx.
	WithTx(tx *sql.Tx) UserStore
}
