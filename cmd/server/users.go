package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/postgres"
	"github.com/phrazzld/as400-api/internal/store"
)

// newUserPasswordEnv supplies the password for -create-user without a prompt.
const newUserPasswordEnv = "AS400API_NEW_USER_PASSWORD"

// userUpserter creates or updates a user. Implemented by
// *service.UserServiceImpl.
type userUpserter interface {
	UpsertUser(ctx context.Context, email, password string, role domain.Role) (*domain.User, error)
}

// readNewUserPassword takes the password from the environment, falling back
// to the first line of stdin.
func readNewUserPassword(getenv func(string) string, stdin io.Reader) (string, error) {
	if p := getenv(newUserPasswordEnv); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("no password given: set %s or pipe it on stdin", newUserPasswordEnv)
	}
	return password, nil
}

// createUser provisions email with role, replacing the password and role
// when the user already exists.
func createUser(ctx context.Context, users userUpserter, email, roleName string, stdin io.Reader) (*domain.User, error) {
	role := domain.Role(roleName)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, roleName)
	}
	password, err := readNewUserPassword(os.Getenv, stdin)
	if err != nil {
		return nil, err
	}
	user, err := users.UpsertUser(ctx, email, password, role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func newUserStore(db *sql.DB, cfg *config.Config) store.UserStore {
	return postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost)
}
