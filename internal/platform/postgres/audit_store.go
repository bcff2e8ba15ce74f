package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/logger"
	"github.com/phrazzld/as400-api/internal/redact"
	"github.com/phrazzld/as400-api/internal/store"
)

// maxAuditPage caps ListByUser.
const maxAuditPage = 500

// PostgresAuditStore implements store.AuditStore.
type PostgresAuditStore struct {
	db store.DBTX
}

var _ store.AuditStore = (*PostgresAuditStore)(nil)

// NewPostgresAuditStore creates an audit store.
func NewPostgresAuditStore(db store.DBTX) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

// Record inserts entry. A nil user ID is stored as NULL.
func (s *PostgresAuditStore) Record(ctx context.Context, entry *domain.AuditEntry) error {
	userID := uuid.NullUUID{UUID: entry.UserID, Valid: entry.UserID != uuid.Nil}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, operation, target, outcome, message_id, duration_ms, trace_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, userID, entry.Operation, entry.Target, entry.Outcome,
		nullableString(entry.MessageID), entry.DurationMS, nullableString(entry.TraceID), entry.CreatedAt,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to record audit entry",
			"operation", entry.Operation,
			"error", redact.Error(err))
		return store.NewStoreError("audit", "create", "insert failed", MapError(err))
	}
	return nil
}

// ListByUser returns up to limit entries for userID, newest first.
func (s *PostgresAuditStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AuditEntry, error) {
	if limit <= 0 || limit > maxAuditPage {
		limit = maxAuditPage
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, operation, target, outcome, message_id, duration_ms, trace_id, created_at
		FROM audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit,
	)
	if err != nil {
		logger.FromContext(ctx).Error("failed to query audit log", "error", redact.Error(err))
		return nil, store.NewStoreError("audit", "list", "query failed", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	entries := []domain.AuditEntry{}
	for rows.Next() {
		var e domain.AuditEntry
		var uid uuid.NullUUID
		var messageID, traceID sql.NullString
		if err := rows.Scan(&e.ID, &uid, &e.Operation, &e.Target, &e.Outcome, &messageID, &e.DurationMS, &traceID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		e.UserID = uid.UUID
		e.MessageID = messageID.String
		e.TraceID = traceID.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
