package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUpload(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	rec, err := e.fileSvc.Upload(ctx, "alice", "Q3 report.pdf", strings.NewReader("%PDF-1.7"))
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "alice", rec.OwnerID)
	assert.Equal(t, "Q3_report.pdf", rec.Filename)
	assert.False(t, rec.Shared())
	assert.Equal(t, e.clock.Now(), rec.UploadedAt)

	assert.True(t, strings.HasSuffix(rec.StorageKey, common.ContainerSuffix))
	fi, err := os.Stat(rec.StorageKey)
	require.NoError(t, err)
	assert.Greater(t, fi.Size(), int64(len("%PDF-1.7")))

	_, err = os.Stat(strings.TrimSuffix(rec.StorageKey, common.ContainerSuffix))
	assert.True(t, errors.Is(err, os.ErrNotExist), "plaintext removed")

	stored, err := e.rm.Files(e.db).GetByID(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.StorageKey, stored.StorageKey)
}

func TestUpload_Rejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.fileSvc.Upload(ctx, "alice", "run.exe", strings.NewReader("MZ"))
	assert.ErrorIs(t, err, common.ErrExtensionNotAllowed)

	_, err = e.fileSvc.Upload(ctx, "alice", "...", strings.NewReader("x"))
	assert.ErrorIs(t, err, common.ErrInvalidFilename)

	recs, err := e.fileSvc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestUpload_InsertFailureRemovesContainer(t *testing.T) {
	e := newEnv(t)
	repo := &mockFilesRepo{}
	repo.On("Insert", mock.Anything, mock.Anything).Return(errors.New("db gone"))

	svc := NewFileService(nil, &fakeRepoMgr{repo: repo}, e.cfg, e.files, e.engine, blobstore.NewLocal(), e.issuer, logging.NewDiscardLogger())

	_, err := svc.Upload(context.Background(), "alice", "notes.txt", strings.NewReader("hello"))
	assert.ErrorContains(t, err, "db gone")

	left, err := os.ReadDir(e.files.IncomingDir())
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestList_NewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	uploadFixture(t, e, "alice", "a.txt", "a")
	e.clock.Advance(time.Minute)
	uploadFixture(t, e, "alice", "b.txt", "b")
	e.clock.Advance(time.Minute)
	uploadFixture(t, e, "bob", "c.txt", "c")

	recs, err := e.fileSvc.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "b.txt", recs[0].Filename)
	assert.Equal(t, "a.txt", recs[1].Filename)
}

func TestShare(t *testing.T) {
	e := newEnv(t)
	rec := uploadFixture(t, e, "alice", "report.pdf", "pdf")

	link, err := e.fileSvc.Share(context.Background(), "alice", rec.ID)
	require.NoError(t, err)

	assert.Equal(t, rec.ID, link.FileID)
	assert.Regexp(t, hex64, link.Token)
	assert.Equal(t, "https://share.example.com/s/"+link.Token, link.URL)
	assert.Equal(t, e.clock.Now().Add(15*time.Minute), link.ExpiresAt)

	_, err = e.fileSvc.Share(context.Background(), "bob", rec.ID)
	assert.ErrorIs(t, err, common.ErrorForbidden)
}

func TestUpload_ContainerUnderIncoming(t *testing.T) {
	e := newEnv(t)
	rec := uploadFixture(t, e, "alice", "report.pdf", "pdf")
	assert.Equal(t, e.files.IncomingDir(), filepath.Dir(rec.StorageKey))
}
