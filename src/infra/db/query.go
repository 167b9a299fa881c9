package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Record is one result row keyed by column name.
type Record map[string]any

// Statement is one step of ExecTx.
type Statement struct {
	Query string
	Args  []any
}

// NormalizeQuery collapses every run of whitespace, newlines included, into a
// single space and trims both ends.
func NormalizeQuery(q string) string {
	return strings.Join(strings.Fields(q), " ")
}

// SelectOne runs q and returns its first row. It returns ErrNoRecord when the
// query yields nothing.
func (s *Scope) SelectOne(ctx context.Context, database, q string, args ...any) (Record, error) {
	conn, name, q, err := s.prepare(ctx, database, q, args)
	if err != nil {
		return nil, err
	}

	rec := Record{}
	err = conn.QueryRowxContext(ctx, q, args...).MapScan(rec)
	if errors.Is(err, sql.ErrNoRows) {
		s.logOutcome(ctx, name, 0, "fetched")
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, s.queryFailed(ctx, name, q, err)
	}
	normalizeRecord(rec)

	s.logOutcome(ctx, name, 1, "fetched")
	return rec, nil
}

// SelectAll runs q and returns every row.
func (s *Scope) SelectAll(ctx context.Context, database, q string, args ...any) ([]Record, error) {
	conn, name, q, err := s.prepare(ctx, database, q, args)
	if err != nil {
		return nil, err
	}

	rows, err := conn.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, s.queryFailed(ctx, name, q, err)
	}
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec := Record{}
		if err := rows.MapScan(rec); err != nil {
			return nil, s.queryFailed(ctx, name, q, err)
		}
		normalizeRecord(rec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.queryFailed(ctx, name, q, err)
	}

	s.logOutcome(ctx, name, int64(len(records)), "fetched")
	return records, nil
}

// Insert runs q and returns the number of rows inserted.
func (s *Scope) Insert(ctx context.Context, database, q string, args ...any) (int64, error) {
	return s.exec(ctx, database, q, args, "inserted")
}

// Update runs q and returns the number of rows updated.
func (s *Scope) Update(ctx context.Context, database, q string, args ...any) (int64, error) {
	return s.exec(ctx, database, q, args, "updated")
}

// Delete runs q and returns the number of rows deleted.
func (s *Scope) Delete(ctx context.Context, database, q string, args ...any) (int64, error) {
	return s.exec(ctx, database, q, args, "deleted")
}

func (s *Scope) exec(ctx context.Context, database, q string, args []any, verb string) (int64, error) {
	conn, name, q, err := s.prepare(ctx, database, q, args)
	if err != nil {
		return 0, err
	}

	res, err := conn.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, s.queryFailed(ctx, name, q, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, s.queryFailed(ctx, name, q, err)
	}

	s.logOutcome(ctx, name, n, verb)
	return n, nil
}

// ExecTx runs every statement inside one transaction on the scoped
// connection. Any failure rolls the whole batch back and is returned joined
// with ErrTransaction.
func (s *Scope) ExecTx(ctx context.Context, database string, stmts []Statement) error {
	conn, err := s.Conn(ctx, database)
	if err != nil {
		return err
	}
	name, _ := s.resolve(database)
	log := s.registry.log

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		log.ErrorContext(ctx, "failed to begin transaction", "database", name, "error", err)
		return errors.Join(ErrTransaction, err)
	}

	for i, st := range stmts {
		q := NormalizeQuery(st.Query)
		s.logQuery(ctx, name, q, st.Args)

		if _, err := tx.ExecContext(ctx, q, st.Args...); err != nil {
			log.ErrorContext(ctx, "transaction statement failed",
				"database", name,
				"statement", i,
				"sql", q,
				"error", err,
			)
			return s.rollback(ctx, tx, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.ErrorContext(ctx, "failed to commit transaction", "database", name, "error", err)
		return errors.Join(ErrTransaction, err)
	}

	log.InfoContext(ctx, fmt.Sprintf("transaction committed with %d statement(s)", len(stmts)), "database", name)
	return nil
}

// rollback undoes tx after cause. sql.ErrTxDone means database/sql already
// rolled back because ctx ended.
func (s *Scope) rollback(ctx context.Context, tx interface{ Rollback() error }, name string, cause error) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		s.registry.log.ErrorContext(ctx, "transaction rollback failed", "database", name, "error", err)
		return errors.Join(ErrTransaction, cause, err)
	}
	s.registry.log.WarnContext(ctx, "transaction rolled back", "database", name)
	return errors.Join(ErrTransaction, cause)
}

func (s *Scope) prepare(ctx context.Context, database, q string, args []any) (*sqlx.Conn, string, string, error) {
	conn, err := s.Conn(ctx, database)
	if err != nil {
		return nil, "", "", err
	}
	name, _ := s.resolve(database)
	q = NormalizeQuery(q)
	s.logQuery(ctx, name, q, args)
	return conn, name, q, nil
}

func (s *Scope) logQuery(ctx context.Context, name, q string, args []any) {
	if s.registry.logArgs {
		s.registry.log.InfoContext(ctx, "executing query", "database", name, "sql", q, "params", args)
		return
	}
	s.registry.log.InfoContext(ctx, "executing query", "database", name, "sql", q, "param_count", len(args))
}

func (s *Scope) logOutcome(ctx context.Context, name string, n int64, verb string) {
	s.registry.log.InfoContext(ctx, fmt.Sprintf("%d record(s) %s", n, verb), "database", name)
}

func (s *Scope) queryFailed(ctx context.Context, name, q string, err error) error {
	s.registry.log.ErrorContext(ctx, "query execution failed",
		"database", name,
		"sql", q,
		"error", err,
	)
	return errors.Join(ErrQueryExecution, err)
}

// normalizeRecord turns driver byte slices (text columns over some drivers)
// into strings so records encode as JSON text.
func normalizeRecord(rec Record) {
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
}
