// Package store defines the persistence interfaces for users, audit
// entries and async jobs. Implementations live in platform/postgres.
package store
