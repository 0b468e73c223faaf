package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/securelink/internal/cryptox"
	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/blobstore"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/filestore"
	"github.com/dmitrijs2005/securelink/internal/server/otp"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/require"
)

// clock is a settable time source shared by the services under test.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentMessage struct {
	to, subject, body string
}

// captureSender records messages instead of delivering them.
type captureSender struct {
	mu   sync.Mutex
	msgs []sentMessage
	err  error
}

func (s *captureSender) Send(_ context.Context, to, subject, body string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.msgs = append(s.msgs, sentMessage{to, subject, body})
	return nil
}

func (s *captureSender) last() sentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.msgs) == 0 {
		return sentMessage{}
	}
	return s.msgs[len(s.msgs)-1]
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = t.TempDir()
	cfg.PublicBaseURL = "https://share.example.com/"
	return cfg
}

func newSQLite(t *testing.T) (*sql.DB, repomanager.RepositoryManager) {
	t.Helper()
	rm := &repomanager.SQLiteRepositoryManager{}
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, rm.RunMigrations(context.Background(), db))
	return db, rm
}

// env wires the full service graph on SQLite and the local container store.
type env struct {
	cfg      *config.Config
	clock    *clock
	db       *sql.DB
	rm       repomanager.RepositoryManager
	sender   *captureSender
	store    *otp.MemoryStore
	otp      *OTPManager
	issuer   *TokenIssuer
	gate     *AccessGate
	files    *filestore.Store
	fileSvc  *FileService
	download *DownloadService
	engine   *cryptox.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{cfg: testConfig(t), clock: newClock(), sender: &captureSender{}, store: otp.NewMemoryStore()}
	log := logging.NewDiscardLogger()

	e.db, e.rm = newSQLite(t)
	e.engine = cryptox.NewEngine(cryptox.StaticKey(e.cfg.EncryptionKey))

	e.files = filestore.New(e.cfg.DataDir, e.engine, filestore.Options{
		MaxSize:           e.cfg.MaxUploadSize,
		AllowedExtensions: e.cfg.AllowedExtensions,
	})
	require.NoError(t, e.files.Bootstrap())

	e.otp = NewOTPManager(e.store, e.sender, e.cfg, log)
	e.otp.now = e.clock.Now

	e.issuer = NewTokenIssuer(e.db, e.rm, e.cfg)
	e.issuer.now = e.clock.Now

	e.gate = NewAccessGate(e.db, e.rm, e.otp)
	e.gate.now = e.clock.Now

	blobs := blobstore.NewLocal()
	e.fileSvc = NewFileService(e.db, e.rm, e.cfg, e.files, e.engine, blobs, e.issuer, log)
	e.fileSvc.now = e.clock.Now
	e.download = NewDownloadService(e.cfg, blobs, e.files, log)
	return e
}
