// Package postgres implements the store interfaces on PostgreSQL through
// database/sql and the pgx driver. Stores accept a store.DBTX so they run
// either on the pool or inside a caller's transaction. The schema lives in
// the embedded goose migrations.
package postgres
