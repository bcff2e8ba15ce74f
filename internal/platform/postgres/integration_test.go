//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/as400-api/internal/domain"
	"github.com/phrazzld/as400-api/internal/platform/postgres"
	"github.com/phrazzld/as400-api/internal/store"
	"github.com/phrazzld/as400-api/internal/task"
	"github.com/phrazzld/as400-api/internal/testdb"
)

type nopExecutor struct{}

func (nopExecutor) ExecuteQueuedCommand(context.Context, uuid.UUID, string) (*domain.CommandResult, error) {
	return &domain.CommandResult{Succeeded: true}, nil
}

func createUser(t *testing.T, tx *sql.Tx, role domain.Role) *domain.User {
	t.Helper()
	user, err := domain.NewUser("user-"+uuid.NewString()[:8]+"@example.com", "long enough password", role)
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(tx, bcrypt.MinCost).Create(context.Background(), user))
	return user
}

func TestIntegration_UserStore(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		users := postgres.NewPostgresUserStore(tx, bcrypt.MinCost)
		user := createUser(t, tx, domain.RoleOperator)

		got, err := users.GetByEmail(ctx, user.Email)
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		assert.Equal(t, domain.RoleOperator, got.Role)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(got.HashedPassword), []byte("long enough password")))

		_, err = users.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)

		// the unique violation aborts the transaction, so it goes last
		dup, err := domain.NewUser(user.Email, "another long password", domain.RoleReader)
		require.NoError(t, err)
		assert.ErrorIs(t, users.Create(ctx, dup), store.ErrEmailExists)
	})
}

func TestIntegration_TaskLifecycle(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(tx)
		user := createUser(t, tx, domain.RoleOperator)

		hostTask, err := task.NewHostCommandTask(user.ID, "DSPLIB LIB(QGPL)", nopExecutor{})
		require.NoError(t, err)
		require.NoError(t, tasks.SaveTask(ctx, hostTask))

		pending, err := tasks.GetPendingTasks(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, pending)

		require.NoError(t, tasks.UpdateTaskStatus(ctx, hostTask.ID(), task.TaskStatusProcessing, ""))
		require.NoError(t, tasks.FinishTask(ctx, hostTask.ID(), task.TaskStatusCompleted, []byte(`{"succeeded":true}`), ""))

		job, err := tasks.GetJob(ctx, hostTask.ID())
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.Equal(t, user.ID, job.UserID)
		assert.JSONEq(t, `{"command":"DSPLIB LIB(QGPL)"}`, string(job.Payload))
		assert.JSONEq(t, `{"succeeded":true}`, string(job.Result))

		_, err = tasks.GetJob(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestIntegration_AuditStore(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		audit := postgres.NewPostgresAuditStore(tx)
		user := createUser(t, tx, domain.RoleReader)
		base := time.Now().UTC().Truncate(time.Millisecond)

		for i, outcome := range []string{domain.OutcomeSuccess, domain.OutcomeDenied} {
			require.NoError(t, audit.Record(ctx, &domain.AuditEntry{
				ID:        uuid.New(),
				UserID:    user.ID,
				Operation: domain.OperationQuery,
				Target:    "SELECT 1",
				Outcome:   outcome,
				CreatedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		entries, err := audit.ListByUser(ctx, user.ID, 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, domain.OutcomeDenied, entries[0].Outcome, "newest first")
		assert.Empty(t, entries[0].MessageID)
	})
}
