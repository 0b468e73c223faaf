package dbx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbx_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestIsUniqueViolation_Postgres(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
	other := &pgconn.PgError{Code: "23514", Message: "check violation"}

	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("update token: %w", dup)))
	assert.False(t, IsUniqueViolation(other))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS u (tok TEXT UNIQUE)`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM u`)
	require.NoError(t, err)

	_, err = db.ExecContext(context.Background(), `INSERT INTO u(tok) VALUES ('abc')`)
	require.NoError(t, err)
	_, err = db.ExecContext(context.Background(), `INSERT INTO u(tok) VALUES ('abc')`)
	require.Error(t, err)

	assert.True(t, IsUniqueViolation(err))
	assert.True(t, IsUniqueViolation(fmt.Errorf("wrapped: %w", err)))
}

func TestIsUniqueViolation_Other(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("UNIQUE constraint failed")))
}
