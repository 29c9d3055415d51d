// Package store persists conversations and their processed exchanges.
//
// Two backends implement the Store interface: an in-memory map for tests
// and single-process development, and SQLite for durable deployments.
// The SQLite backend supports both the pure-Go and the cgo driver,
// selected by configuration. Retention is enforced by a cron-scheduled
// pruner.
package store
