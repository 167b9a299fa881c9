package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/singleflight"

	"statapi/src/infra/config"
)

// Pool is the process-wide connection pool of one logical database.
type Pool struct {
	Name string
	DB   *sqlx.DB

	release func()
}

// Stats returns the pool's checkout counters.
func (p *Pool) Stats() sql.DBStats {
	return p.DB.Stats()
}

func (p *Pool) close() {
	if p.release != nil {
		p.release()
		return
	}
	_ = p.DB.Close()
}

// Registry owns one Pool per logical database name. Pools are created on
// first use and live until Close. It is safe for concurrent use; concurrent
// first requests for the same name create exactly one pool.
type Registry struct {
	params  config.Databases
	open    Opener
	log     *slog.Logger
	logArgs bool

	mu     sync.RWMutex
	pools  map[string]*Pool
	closed bool
	group  singleflight.Group
}

// Option configures a Registry.
type Option func(*Registry)

// WithOpener replaces the pool constructor. Tests use it to inject sqlmock.
func WithOpener(open Opener) Option {
	return func(r *Registry) {
		if open != nil {
			r.open = open
		}
	}
}

// WithQueryArgs controls whether query parameter values are logged.
func WithQueryArgs(enabled bool) Option {
	return func(r *Registry) {
		r.logArgs = enabled
	}
}

// NewRegistry creates an empty registry over the configured databases.
func NewRegistry(params config.Databases, log *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		params: params,
		open:   OpenPostgres,
		log:    log,
		pools:  make(map[string]*Pool),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Names returns the configured database names in sorted order.
func (r *Registry) Names() []string {
	return r.params.Names()
}

// Has reports whether name is a configured database.
func (r *Registry) Has(name string) bool {
	_, ok := r.params[name]
	return ok
}

// Get returns the pool for name, creating it on first use. A failed
// creation is logged and returned; it is not cached, so a later call tries
// again. ctx bounds how long the caller waits for the pool.
func (r *Registry) Get(ctx context.Context, name string) (*Pool, error) {
	r.mu.RLock()
	p, ok := r.pools[name]
	closed := r.closed
	r.mu.RUnlock()
	if ok {
		return p, nil
	}
	if closed {
		return nil, ErrRegistryClosed
	}

	params, ok := r.params[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDatabase, name)
	}

	ch := r.group.DoChan(name, func() (any, error) {
		r.mu.RLock()
		p, ok := r.pools[name]
		r.mu.RUnlock()
		if ok {
			return p, nil
		}
		return r.create(ctx, name, params)
	})

	// A waiter whose context ends leaves; the creation it joined carries on.
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Pool), nil
	case <-ctx.Done():
		return nil, errors.Join(ErrAcquire, fmt.Errorf("waiting for pool %q: %w", name, ctx.Err()))
	}
}

func (r *Registry) create(ctx context.Context, name string, params config.DatabaseParams) (*Pool, error) {
	sqlDB, release, err := r.open(ctx, params)
	if err != nil {
		r.log.ErrorContext(ctx, "connection pool creation failed",
			"database", name,
			"error", err,
		)
		return nil, errors.Join(ErrPoolCreation, err)
	}

	p := &Pool{
		Name:    name,
		DB:      sqlx.NewDb(sqlDB, "pgx"),
		release: release,
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		p.close()
		return nil, ErrRegistryClosed
	}
	r.pools[name] = p
	r.mu.Unlock()

	r.log.InfoContext(ctx, "connection pool created",
		"database", name,
		"max_conns", params.MaxConns,
		"min_conns", params.MinConns,
	)
	return p, nil
}

// Ping checks that the named database is reachable, creating its pool if needed.
func (r *Registry) Ping(ctx context.Context, name string) error {
	p, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	return p.DB.PingContext(ctx)
}

// Stats returns checkout counters of every pool created so far.
func (r *Registry) Stats() map[string]sql.DBStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]sql.DBStats, len(r.pools))
	for name, p := range r.pools {
		out[name] = p.Stats()
	}
	return out
}

// Close closes every pool. Call this during graceful shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	for name, p := range r.pools {
		p.close()
		delete(r.pools, name)
		r.log.Info("connection pool closed", "database", name)
	}
}
