package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"statapi/src/infra/config"
)

const healthCheckPeriod = time.Minute

// Opener constructs the pool behind one logical database. ctx bounds the
// initial connection check, not the lifetime of the pool. The returned
// function releases everything the opener allocated.
type Opener func(ctx context.Context, params config.DatabaseParams) (*sql.DB, func(), error)

// OpenPostgres is the default Opener. It builds a bounded pgx pool, verifies
// it with a ping and exposes it through database/sql.
func OpenPostgres(ctx context.Context, params config.DatabaseParams) (*sql.DB, func(), error) {
	poolCfg, err := pgxpool.ParseConfig(params.ConnString())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	// Apply connection pool settings
	poolCfg.MaxConns = params.MaxConns
	poolCfg.MinConns = params.MinConns
	poolCfg.MaxConnLifetime = params.MaxConnLifetime
	poolCfg.HealthCheckPeriod = healthCheckPeriod
	if params.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = params.ConnectTimeout
	}

	// The pool outlives the request that triggered it.
	pool, err := pgxpool.NewWithConfig(context.WithoutCancel(ctx), poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// database/sql keeps its own bookkeeping on top of the pgx pool; bound it
	// the same way so checkouts block at the configured size.
	sqlDB := stdlib.OpenDBFromPool(pool)
	sqlDB.SetMaxOpenConns(int(params.MaxConns))
	sqlDB.SetMaxIdleConns(int(params.MinConns))
	sqlDB.SetConnMaxLifetime(params.MaxConnLifetime)

	closeFn := func() {
		_ = sqlDB.Close()
		pool.Close()
	}
	return sqlDB, closeFn, nil
}
