package store

import (
	"context"
	"strings"

	"github.com/pkg/errors"
)

// Store wraps a Driver with the namespace-scoping and lifecycle glue shared
// by every backend, grounded on the teacher's store.Store wrapper around
// store.Driver.
type Store struct {
	driver Driver
}

// NewStore adopts an already-constructed Driver (sqlite.NewDB or
// postgres.NewDB); callers pick the backend package so this module never
// needs a build tag or driver registry.
func NewStore(driver Driver) *Store {
	return &Store{driver: driver}
}

func (s *Store) Driver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// DSNBackend reports which driver a DSN names, by scheme prefix: "postgres"
// for postgres://… or postgresql://…, "sqlite" otherwise (a bare file path or
// file:... DSN).
func DSNBackend(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	return "sqlite"
}

// ErrNotFound is returned by callers that need to distinguish "no such task"
// from a real backend error; the Driver methods themselves return (nil, nil)
// on a missing row, so this exists for higher layers that prefer an error.
var ErrNotFound = errors.New("not found")
