// Package server assembles the securelink server: storage, crypto, the
// OTP/link services, the janitor and the HTTP and gRPC surfaces, and runs
// them until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/securelink/internal/cryptox"
	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/blobstore"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/filestore"
	"github.com/dmitrijs2005/securelink/internal/server/httpapi"
	"github.com/dmitrijs2005/securelink/internal/server/janitor"
	"github.com/dmitrijs2005/securelink/internal/server/notify"
	"github.com/dmitrijs2005/securelink/internal/server/otp"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/securelink/internal/server/services"

	gs "github.com/dmitrijs2005/securelink/internal/server/grpc"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	http    *httpapi.HTTPServer
	grpc    *gs.GRPCServer
	janitor *janitor.Janitor
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	level, err := logging.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	logger := logging.NewJSONLogger(os.Stdout, level)

	rm, err := repomanager.NewRepositoryManager(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}
	db, err := repomanager.Open(ctx, rm, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	app, err := assemble(ctx, c, logger, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func assemble(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, rm repomanager.RepositoryManager) (*App, error) {
	keys, err := newKeyProvider(c)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	// resolve once so a bad key or passphrase fails startup, not the first upload
	if _, err := keys.Key(ctx); err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}
	engine := cryptox.NewEngine(keys)

	files := filestore.New(c.DataDir, engine, filestore.Options{
		MaxSize:           c.MaxUploadSize,
		AllowedExtensions: c.AllowedExtensions,
	})
	if err := files.Bootstrap(); err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}

	blobs, err := newBlobStore(ctx, c, files)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	otpm := services.NewOTPManager(otp.NewMemoryStore(), newSender(c, logger), c, logger)
	issuer := services.NewTokenIssuer(db, rm, c)
	gate := services.NewAccessGate(db, rm, otpm)
	fileSvc := services.NewFileService(db, rm, c, files, engine, blobs, issuer, logger)
	download := services.NewDownloadService(c, blobs, files, logger)

	j, err := janitor.New(c, files, otpm, logger)
	if err != nil {
		return nil, err
	}

	h := httpapi.NewHandler(c, fileSvc, gate, download, logger)

	return &App{
		config:  c,
		logger:  logger,
		db:      db,
		http:    httpapi.NewHTTPServer(c.EndpointAddrHTTP, h, logger),
		grpc:    gs.NewGRPCServer(c.EndpointAddrGRPC, logger, fileSvc, c.SecretKey, c.MaxUploadSize),
		janitor: j,
	}, nil
}

func newKeyProvider(c *config.Config) (cryptox.KeyProvider, error) {
	switch c.EncryptionKeySource {
	case config.KeySourcePassphrase:
		return cryptox.PassphraseKey{
			Passphrase: []byte(c.EncryptionKey),
			Salt:       []byte(c.EncryptionSalt),
			KeyLen:     uint32(c.EncryptionKeyLen),
		}, nil
	case config.KeySourcePrompt:
		return cryptox.NewPromptKey([]byte(c.EncryptionSalt), uint32(c.EncryptionKeyLen)), nil
	}
	return cryptox.ParseStaticKey(c.EncryptionKey)
}

func newBlobStore(ctx context.Context, c *config.Config, files *filestore.Store) (blobstore.Store, error) {
	if c.StorageBackend != config.StorageS3 {
		return blobstore.NewLocal(), nil
	}
	return blobstore.NewS3(ctx, blobstore.S3Config{
		AccessKey:    c.S3AccessKey,
		SecretKey:    c.S3SecretKey,
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		BaseEndpoint: c.S3BaseEndpoint,
	}, files.CacheDir())
}

// newSender mails codes when an SMTP relay is configured and otherwise only
// logs them, which is meant for development.
func newSender(c *config.Config, logger logging.Logger) notify.Sender {
	if c.SMTPHost == "" {
		return notify.NewLogSender(logger)
	}
	return notify.NewSMTPSender(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	})
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run starts both servers and the janitor and blocks until ctx is cancelled,
// a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)
	app.janitor.Start(ctx)

	var wg sync.WaitGroup
	serve := func(name string, run func(context.Context) error) {
		defer wg.Done()
		if err := run(ctx); err != nil {
			app.logger.Error(ctx, name+" server failed", "error", err)
			cancelFunc()
		}
	}

	wg.Add(2)
	go serve("http", app.http.Run)
	go serve("grpc", app.grpc.Run)
	wg.Wait()

	<-app.janitor.Stop().Done()
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "close db", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
