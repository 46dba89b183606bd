// Package postgres stores AI task records in PostgreSQL. It talks to the
// database through database/sql with the pgx stdlib driver and ships its
// schema as goose migrations embedded in the binary.
package postgres
