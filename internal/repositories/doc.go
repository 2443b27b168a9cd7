// Package repositories provides the persistence layer.
//
// The client owns a single piece of durable state: the OAuth credential,
// stored in a one-row SQLite table created by the embedded migrations in
// internal/shared.
package repositories
