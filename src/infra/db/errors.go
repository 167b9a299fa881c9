package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrUnknownDatabase = errors.New("db: unknown database")
	ErrNoDatabase      = errors.New("db: no database name given and none derived from the route")
	ErrPoolCreation    = errors.New("db: failed to create connection pool")
	ErrAcquire         = errors.New("db: failed to acquire connection")
	ErrQueryExecution  = errors.New("db: query execution failed")
	ErrTransaction     = errors.New("db: transaction failed")
	ErrNoRecord        = errors.New("db: no record found")
	ErrScopeClosed     = errors.New("db: connection scope already closed")
	ErrNoScope         = errors.New("db: no connection scope in context")
	ErrRegistryClosed  = errors.New("db: registry closed")
)

// IsUniqueViolation reports whether err carries a PostgreSQL unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

// IsUnavailable reports whether err means the database could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrPoolCreation) || errors.Is(err, ErrAcquire)
}
