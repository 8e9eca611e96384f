// Package postgres is the store.Driver backend for multi-head production
// deployments, grounded on the teacher's store/db/postgres package (connection
// shape adapted from store/db/sqlite/sqlite.go's NewDB, since the teacher
// opens its postgres pool outside the package proper).
package postgres

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	_ "github.com/lib/pq"

	"github.com/batchelor-project/batchelor/store"
)

// DB is the postgres-backed store.Driver.
type DB struct {
	db *sql.DB
}

// NewDB opens a connection pool against dsn (a postgres:// URL or keyword
// string, per lib/pq).
func NewDB(dsn string) (store.Driver, error) {
	if dsn == "" {
		return nil, errors.New("dsn required")
	}

	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to reach postgres")
	}

	// A head process juggles concurrent dispatch handlers and a sweeper
	// goroutine; unlike sqlite's single-connection rule, postgres tolerates a
	// real pool.
	sqlDB.SetMaxOpenConns(16)
	sqlDB.SetMaxIdleConns(4)

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
