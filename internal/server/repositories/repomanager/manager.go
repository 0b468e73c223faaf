// Package repomanager vends repositories for the configured SQL dialect and
// runs the matching embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/securelink/internal/dbx"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/files"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Files(db dbx.DBTX) files.Repository
	// DriverName is the database/sql driver to open DSNs with.
	DriverName() string
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// NewRepositoryManager returns the manager for a config.Driver* value.
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	switch driver {
	case config.DriverPostgres:
		return &PostgresRepositoryManager{}, nil
	case config.DriverSQLite:
		return &SQLiteRepositoryManager{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}

// Open opens and pings the database for rm.
func Open(ctx context.Context, rm RepositoryManager, dsn string) (*sql.DB, error) {
	db, err := sql.Open(rm.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", rm.DriverName(), err)
	}
	return db, nil
}
