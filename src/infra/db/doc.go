// Package db provides the per-request PostgreSQL connection lifecycle.
//
// This package is responsible for:
//   - One connection pool per logical database name, created on first use
//   - A request-scoped cache holding at most one connection per database
//   - Returning every cached connection to its pool when the request ends
//   - CRUD-style query helpers that log the query and its outcome
//
// Example usage:
//
//	reg := db.NewRegistry(cfg.Database.Databases, log)
//	defer reg.Close()
//
//	scope := reg.NewScope("basket")
//	defer scope.Close(ctx)
//
//	leagues, err := scope.SelectAll(ctx, "", "SELECT league_id, name FROM leagues")
package db
