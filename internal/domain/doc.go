// Package domain defines the core entities of the gateway (users, host
// commands, SQL queries, program calls, jobs) together with their validation
// rules and the sentinel errors shared by every layer.
package domain
