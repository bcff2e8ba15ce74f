// Package main is the entry point of the AS400 API Wrapper, an HTTP
// gateway that runs CL commands, SQL and program calls on an IBM i host
// over SSH.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/phrazzld/as400-api/internal/config"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/service"
)

func main() {
	migrateCmd := flag.String("migrate", "", "run a database migration command (up, down, status, version) and exit")
	newUserEmail := flag.String("create-user", "", "create or update a user with this email and exit; the password is read from "+newUserPasswordEnv+" or stdin")
	newUserRole := flag.String("role", "reader", "role for -create-user (reader or operator)")
	flag.Parse()

	if err := run(context.Background(), *migrateCmd, *newUserEmail, *newUserRole); err != nil {
		slog.Error("Fatal error", "error", redact.Error(err))
		os.Exit(1)
	}
}

// run loads configuration and performs the selected mode: a migration, a
// user provisioning or serving HTTP.
func run(ctx context.Context, migrateCmd, newUserEmail, newUserRole string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.Setup(cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	log.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"host", cfg.Host.Address,
		"max_sessions", cfg.Host.MaxSessions)

	db, err := setupAppDatabase(ctx, cfg.Database.URL, log)
	if err != nil {
		return err
	}

	switch {
	case migrateCmd != "":
		defer func() { _ = db.Close() }()
		return runMigrations(ctx, db, migrateCmd, log)

	case newUserEmail != "":
		defer func() { _ = db.Close() }()
		users := service.NewUserService(newUserStore(db, cfg), db, log)
		user, err := createUser(ctx, users, newUserEmail, newUserRole, os.Stdin)
		if err != nil {
			return err
		}
		log.Info("User provisioned", "user_id", user.ID, "role", user.Role)
		return nil
	}

	app, err := newApplication(cfg, log, db)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to initialize application: %w", err)
	}
	return app.Run(ctx)
}
