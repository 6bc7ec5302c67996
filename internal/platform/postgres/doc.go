// Package postgres provides PostgreSQL implementations of the store
// interfaces, using database/sql with the pgx stdlib driver. All measurement
// queries carry the owning user's ID in the WHERE clause; owner scoping is
// enforced here, not just in the API layer.
package postgres
