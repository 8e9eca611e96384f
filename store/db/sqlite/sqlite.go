// Package sqlite is the store.Driver backend for single-head development and
// small deployments, grounded on the teacher's store/db/sqlite/sqlite.go.
// Unlike the teacher (mattn/go-sqlite3 with CGO for sqlite-vec), Batchelor has
// no vector-search feature, so it uses the pure-Go modernc.org/sqlite driver
// instead: no CGO toolchain needed on either the head or worker image.
package sqlite

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"

	"github.com/batchelor-project/batchelor/store"
)

// DB is the sqlite-backed store.Driver.
type DB struct {
	db *sql.DB
}

// NewDB opens the sqlite file at dsn and applies the pragmas needed for a
// single-process WAL-mode workload.
func NewDB(dsn string) (store.Driver, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", dsn)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return nil, errors.Wrapf(err, "failed to set pragma: %s", pragma)
		}
	}

	// A single physical connection avoids "database is locked" errors under
	// WAL when multiple goroutines (head handlers + sweeper) share the pool.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)
	sqlDB.SetConnMaxIdleTime(0)

	return &DB{db: sqlDB}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to apply migration: %s", stmt)
		}
	}
	return nil
}
