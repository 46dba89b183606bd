// Package store holds the database access seam shared by SQL-backed stores
// and the in-memory task store used when no database is configured.
package store
