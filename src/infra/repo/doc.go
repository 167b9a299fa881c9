// Package repo contains PostgreSQL implementations of repository interfaces.
//
// This package implements the ports defined in src/core/ports.
//
// Repositories hold no connection of their own. Every method takes the
// request's connection scope from the context (db.ScopeFrom), so queries run
// on the connection checked out for that request and database, and the
// connection is released by the middleware when the request ends.
//
// Database failures with a domain meaning are mapped to domain errors
// (no record → not found, unique violation → conflict, unreachable database
// → unavailable). Anything else is returned unchanged and reported as an
// internal error.
package repo
