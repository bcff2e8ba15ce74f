// Package postgres implements the store interfaces and the task store on
// PostgreSQL through database/sql and the pgx stdlib driver. Driver errors
// are mapped to store sentinels so callers never see pgconn types.
package postgres
