package files

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/dbx"
	"github.com/dmitrijs2005/securelink/internal/server/migrations"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func newSQLiteRepo(t *testing.T) (*SQLiteRepository, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetBaseFS(migrations.Migrations)
	require.NoError(t, goose.SetDialect("sqlite3"))
	require.NoError(t, goose.UpContext(context.Background(), db, migrations.SQLiteDir))

	return NewSQLiteRepository(db), db
}

func TestSQLite_InsertGetList(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, name := range []string{"a.txt", "b.txt", "c.txt"} {
		require.NoError(t, repo.Insert(ctx, &models.FileRecord{
			ID:         fmt.Sprintf("f%d", i),
			OwnerID:    "alice",
			Filename:   name,
			StorageKey: "k" + name,
			UploadedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Insert(ctx, &models.FileRecord{ID: "x", OwnerID: "bob", Filename: "z", StorageKey: "kz", UploadedAt: t0}))

	got, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "b.txt", got.Filename)
	assert.True(t, t0.Add(time.Minute).Equal(got.UploadedAt))
	assert.Nil(t, got.Token)

	list, err := repo.ListByOwner(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"f2", "f1", "f0"}, []string{list[0].ID, list[1].ID, list[2].ID})

	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_SetTokenAndLookup(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	up := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(ctx, &models.FileRecord{ID: "f1", OwnerID: "o", Filename: "a", StorageKey: "k", UploadedAt: up}))
	require.NoError(t, repo.Insert(ctx, &models.FileRecord{ID: "f2", OwnerID: "o", Filename: "b", StorageKey: "k2", UploadedAt: up}))

	exp := up.Add(15 * time.Minute)
	swapped, err := repo.SetToken(ctx, "f1", nil, "tok-1", exp)
	require.NoError(t, err)
	require.True(t, swapped)

	rec, err := repo.GetByToken(ctx, "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "f1", rec.ID)
	require.NotNil(t, rec.TokenExpiresAt)
	assert.True(t, exp.Equal(*rec.TokenExpiresAt))

	_, err = repo.SetToken(ctx, "f2", nil, "tok-1", exp)
	require.Error(t, err)
	assert.True(t, dbx.IsUniqueViolation(err), "got %v", err)

	swapped, err = repo.SetToken(ctx, "missing", nil, "tok-2", exp)
	require.NoError(t, err)
	assert.False(t, swapped)

	_, err = repo.GetByToken(ctx, "unknown")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestSQLite_SetTokenComparesPrevious(t *testing.T) {
	repo, _ := newSQLiteRepo(t)
	ctx := context.Background()

	up := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	exp := up.Add(15 * time.Minute)
	require.NoError(t, repo.Insert(ctx, &models.FileRecord{ID: "f1", OwnerID: "o", Filename: "a", StorageKey: "k", UploadedAt: up}))

	swapped, err := repo.SetToken(ctx, "f1", nil, "tok-a", exp)
	require.NoError(t, err)
	require.True(t, swapped)

	// a writer that still believes the record is unshared loses
	swapped, err = repo.SetToken(ctx, "f1", nil, "tok-b", exp)
	require.NoError(t, err)
	assert.False(t, swapped)

	rec, err := repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "tok-a", *rec.Token)

	prev := "tok-a"
	swapped, err = repo.SetToken(ctx, "f1", &prev, "tok-c", exp.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, swapped)

	rec, err = repo.GetByID(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, "tok-c", *rec.Token)
}

func TestSQLite_TokenExpiryPairConstraint(t *testing.T) {
	_, db := newSQLiteRepo(t)

	_, err := db.Exec(`INSERT INTO files (id, owner_id, filename, storage_key, token, token_expires_at, uploaded_at)
		VALUES ('f', 'o', 'n', 'k', 'tok', NULL, '2026-01-01 00:00:00')`)
	assert.Error(t, err)
}

func TestSQLite_InsertInsideTx(t *testing.T) {
	_, db := newSQLiteRepo(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)
	err = NewSQLiteRepository(tx).Insert(ctx, &models.FileRecord{ID: "t1", OwnerID: "o", Filename: "a", StorageKey: "k", UploadedAt: time.Now()})
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	_, err = NewSQLiteRepository(db).GetByID(ctx, "t1")
	assert.NoError(t, err)
}
