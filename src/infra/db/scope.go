package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
)

// Scope caches at most one checked-out connection per database for the
// lifetime of a single request. A Scope belongs to one request and must not
// be shared between goroutines.
type Scope struct {
	registry  *Registry
	defaultDB string
	conns     map[string]*sqlx.Conn
	closed    bool
}

// NewScope returns an empty scope. defaultDB is used by helpers called with
// an empty database name; it may be empty.
func (r *Registry) NewScope(defaultDB string) *Scope {
	return &Scope{
		registry:  r,
		defaultDB: defaultDB,
		conns:     make(map[string]*sqlx.Conn),
	}
}

// Database returns the scope's default database name.
func (s *Scope) Database() string {
	return s.defaultDB
}

// Held returns the names of databases with a connection currently checked out.
func (s *Scope) Held() []string {
	names := make([]string, 0, len(s.conns))
	for name := range s.conns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Scope) resolve(name string) (string, error) {
	if name != "" {
		return name, nil
	}
	if s.defaultDB == "" {
		return "", ErrNoDatabase
	}
	return s.defaultDB, nil
}

// Conn returns the connection for name, checking one out of the pool on
// first use. An empty name selects the scope default.
func (s *Scope) Conn(ctx context.Context, name string) (*sqlx.Conn, error) {
	if s.closed {
		return nil, ErrScopeClosed
	}
	name, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	if conn, ok := s.conns[name]; ok {
		return conn, nil
	}

	pool, err := s.registry.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	conn, err := pool.DB.Connx(ctx)
	if err != nil {
		s.registry.log.ErrorContext(ctx, "failed to acquire connection",
			"database", name,
			"error", err,
		)
		return nil, errors.Join(ErrAcquire, err)
	}
	s.conns[name] = conn

	s.registry.log.DebugContext(ctx, "connection acquired", "database", name)
	return conn, nil
}

// Close returns every cached connection to its pool. It is safe to call on an
// empty scope and more than once; calls after the first do nothing.
func (s *Scope) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	for _, name := range s.Held() {
		conn := s.conns[name]
		delete(s.conns, name)

		if err := conn.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			s.registry.log.ErrorContext(ctx, "failed to return connection to pool",
				"database", name,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("release %q: %w", name, err))
			continue
		}
		s.registry.log.DebugContext(ctx, "connection returned to pool", "database", name)
	}
	return errors.Join(errs...)
}
