package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/store"
)

// UserService provides user provisioning and lookup.
type UserService interface {
	// GetUser retrieves a user by their ID
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)

	// CreateUser creates a new user with the specified email, password and role
	CreateUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error)

	// UpsertUser creates the user, or resets the password and role of an
	// existing user with the same email
	UpsertUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error)
}

// UserServiceImpl implements the UserService interface
type UserServiceImpl struct {
	userStore store.UserStore
	logger    *slog.Logger
	db        store.TxBeginner
}

var _ UserService = (*UserServiceImpl)(nil)

// NewUserService creates a new UserService
func NewUserService(userStore store.UserStore, db store.TxBeginner, logger *slog.Logger) *UserServiceImpl {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserServiceImpl{
		userStore: userStore,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}
}

// GetUser retrieves a user by their ID
func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrUserNotFound) {
			s.logger.Error("failed to retrieve user",
				"error", redact.Error(err),
				"user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}

// CreateUser creates a new user inside a transaction
func (s *UserServiceImpl) CreateUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	user, err := domain.NewUser(email, password, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("attempted to create user with existing email")
		} else {
			s.logger.Error("failed to save user to database", "error", redact.Error(err))
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// UpsertUser creates or updates a user inside a transaction
func (s *UserServiceImpl) UpsertUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error) {
	candidate, err := domain.NewUser(email, password, role)
	if err != nil {
		return nil, fmt.Errorf("invalid user: %w", err)
	}

	var result *domain.User
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.userStore.WithTx(tx)

		existing, err := txStore.GetByEmail(ctx, email)
		if errors.Is(err, store.ErrUserNotFound) {
			if err := txStore.Create(ctx, candidate); err != nil {
				return err
			}
			result = candidate
			return nil
		}
		if err != nil {
			return err
		}

		existing.Password = password
		existing.Role = role
		if err := txStore.Update(ctx, existing); err != nil {
			return err
		}
		result = existing
		return nil
	})
	if err != nil {
		s.logger.Error("failed to upsert user", "error", redact.Error(err))
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	s.logger.Info("user provisioned", "user_id", result.ID, "role", result.Role)
	return result, nil
}
