package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/sift/internal/ir"
	"github.com/roach88/sift/internal/querysql"
)

// Store is a read-mostly handle on the database that filters query.
type Store struct {
	db      *sql.DB
	dialect querysql.Dialect
}

// Open connects to the database named by driver and dsn.
//
// driver is "sqlite3" (or "sqlite") or "postgres" (or "pgx").
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	dialect, err := querysql.ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	switch dialect {
	case querysql.Postgres:
		cfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse postgres dsn: %w", err)
		}
		db = stdlib.OpenDB(*cfg)
	default:
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		// SQLite only supports one writer, and every connection to
		// ":memory:" is its own database.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if dialect == querysql.SQLite {
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	}

	return &Store{db: db, dialect: dialect}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect reports which SQL dialect queries must be compiled for.
func (s *Store) Dialect() querysql.Dialect {
	return s.dialect
}

// Select starts a query over src in the store's dialect.
func (s *Store) Select(src querysql.Source) querysql.Select {
	return querysql.NewSelect(s.dialect, src)
}

// Exec runs a script of one or more statements without arguments.
// Used to create and seed tables.
func (s *Store) Exec(ctx context.Context, script string) error {
	if _, err := s.db.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("exec script: %w", err)
	}
	return nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA case_sensitive_like = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// toValue converts a scanned driver value into an ir.Value.
func toValue(v any) ir.Value {
	switch val := v.(type) {
	case nil:
		return ir.Null{}
	case int64:
		return ir.Int(val)
	case int32:
		return ir.Int(val)
	case int:
		return ir.Int(val)
	case float64:
		return ir.Float(val)
	case float32:
		return ir.Float(val)
	case bool:
		return ir.Bool(val)
	case []byte:
		return ir.String(string(val))
	case string:
		return ir.String(val)
	case time.Time:
		return ir.Time(val.UTC())
	default:
		return ir.String(fmt.Sprint(val))
	}
}
