// Package postgres opens the relational store and owns its schema.
package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"

	"alumnireg/internal/platform/config"
)

//go:embed schema.sql
var schema string

// Tables in dependency order (children first).
var Tables = []string{"audit_events", "transactions", "registrations"}

const uniqueViolation = "23505"

// DB is a database/sql handle backed by a pgx pool.
type DB struct {
	*sql.DB
	pool *pgxpool.Pool
}

// Open connects to cfg.DatabaseURL and verifies the connection.
func Open(ctx context.Context, cfg config.Storage) (*DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &DB{DB: stdlib.OpenDBFromPool(pool), pool: pool}, nil
}

// Close closes the sql handle and the underlying pool.
func (d *DB) Close() error {
	err := d.DB.Close()
	d.pool.Close()
	return err
}

// Migrate applies the idempotent schema.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Truncate empties the given tables. Backs `regctl migrate --reset` and the
// integration test containers.
func Truncate(ctx context.Context, db *sql.DB, tables ...string) error {
	if len(tables) == 0 {
		return nil
	}
	quoted := make([]string, len(tables))
	for i, t := range tables {
		quoted[i] = pq.QuoteIdentifier(t)
	}
	_, err := db.ExecContext(ctx, "TRUNCATE "+strings.Join(quoted, ", ")+" CASCADE")
	return err
}

// UniqueViolation reports whether err is a unique constraint violation and
// returns the violated constraint name.
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}
