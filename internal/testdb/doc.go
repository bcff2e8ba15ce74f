//go:build integration

// Package testdb provides helpers for tests that run against a real
// PostgreSQL database.
//
// Tests using it are built only with the integration tag and skip when
// AS400API_TEST_DB_URL is unset. Each test runs inside a transaction that is
// rolled back when the test completes, so tests do not see each other's data:
//
//	db := testdb.GetTestDBWithT(t)
//	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//		users := postgres.NewPostgresUserStore(tx, bcrypt.MinCost)
//		...
//	})
package testdb
