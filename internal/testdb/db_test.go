//go:build integration

package testdb

import (
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskDatabaseURL(t *testing.T) {
	assert.Equal(t, "postgres://as400api:****@db:5432/as400api",
		maskDatabaseURL("postgres://as400api:secret@db:5432/as400api"))
	assert.Equal(t, "postgres://db/as400api", maskDatabaseURL("postgres://db/as400api"))
	assert.Equal(t, "invalid-url", maskDatabaseURL("://bad"))
}

func TestWithTx_RollsBack(t *testing.T) {
	db := GetTestDBWithT(t)
	email := "rollback-" + uuid.NewString() + "@example.com"

	WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		_, err := tx.Exec(`INSERT INTO users (id, email, hashed_password, role) VALUES ($1, $2, 'x', 'reader')`,
			uuid.New(), email)
		require.NoError(t, err)
	})

	var count int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM users WHERE email = $1`, email).Scan(&count))
	assert.Zero(t, count)
}
