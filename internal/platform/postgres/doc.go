// Package postgres provides PostgreSQL-backed implementations of the
// persistence interfaces in internal/store, plus the embedded schema
// migrations. Connections go through the pgx database/sql driver.
package postgres
