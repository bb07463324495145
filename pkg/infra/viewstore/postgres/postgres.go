// Package postgres stores view sets in a PostgreSQL table.
//
// The table is created on first use:
//
//	CREATE TABLE IF NOT EXISTS viewsets (
//	    name       TEXT PRIMARY KEY,
//	    label      TEXT NOT NULL,
//	    sheet_ids  BIGINT[] NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL
//	)
//
// A store transaction is a SQL transaction; a primary-key violation is
// reported as viewset.ErrConflict.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matzehuels/sheetbatch/pkg/core/viewset"
	"github.com/matzehuels/sheetbatch/pkg/host"
)

// DefaultTable is the table used when Options.Table is empty.
const DefaultTable = "viewsets"

// uniqueViolation is the SQLSTATE of a unique or primary-key violation.
const uniqueViolation = "23505"

// Options configures the connection.
type Options struct {
	DSN   string
	Table string
}

// Store is a PostgreSQL-backed viewset.Store.
type Store struct {
	pool  *pgxpool.Pool
	table string
}

var _ viewset.Store = (*Store)(nil)

// New opens a connection pool and creates the table if needed.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Table == "" {
		opts.Table = DefaultTable
	}
	config, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}
	config.MaxConns = 4
	config.MaxConnLifetime = 3 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect pgx pool: %w", err)
	}
	s := &Store{pool: pool, table: pgx.Identifier{opts.Table}.Sanitize()}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		name       TEXT PRIMARY KEY,
		label      TEXT NOT NULL,
		sheet_ids  BIGINT[] NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`, s.table)
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

// Begin implements viewset.Store. The SQL transaction starts here, so the
// saves of one store transaction share a connection.
func (s *Store) Begin(ctx context.Context, name string) (viewset.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ptx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %q: %w", name, err)
	}
	return &tx{store: s, tx: ptx}, nil
}

// List implements viewset.Store.
func (s *Store) List(ctx context.Context) ([]viewset.Record, error) {
	q := fmt.Sprintf(`SELECT name, label, sheet_ids, created_at FROM %s ORDER BY created_at, name`, s.table)
	rows, err := s.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list view sets: %w", err)
	}
	defer rows.Close()

	var out []viewset.Record
	for rows.Next() {
		var (
			rec viewset.Record
			ids []int64
		)
		if err := rows.Scan(&rec.Name, &rec.Label, &ids, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan view set: %w", err)
		}
		rec.SheetIDs = make([]host.ElementID, len(ids))
		for i, id := range ids {
			rec.SheetIDs[i] = host.ElementID(id)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete implements viewset.Store.
func (s *Store) Delete(ctx context.Context, name string) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE name = $1`, s.table), name)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return viewset.ErrNotFound
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

type tx struct {
	store *Store
	tx    pgx.Tx
	done  bool
}

func (t *tx) Save(ctx context.Context, rec viewset.Record) error {
	if t.done {
		return viewset.ErrTxDone
	}
	ids := make([]int64, len(rec.SheetIDs))
	for i, id := range rec.SheetIDs {
		ids[i] = int64(id)
	}
	q := fmt.Sprintf(`INSERT INTO %s (name, label, sheet_ids, created_at) VALUES ($1, $2, $3, $4)`, t.store.table)
	if _, err := t.tx.Exec(ctx, q, rec.Name, rec.Label, ids, rec.CreatedAt); err != nil {
		return mapError(rec.Name, err)
	}
	return nil
}

func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return viewset.ErrTxDone
	}
	if err := t.tx.Commit(ctx); err != nil {
		return mapError("commit", err)
	}
	t.done = true
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.done = true
	err := t.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func mapError(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", what, viewset.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
