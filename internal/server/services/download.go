package services

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/blobstore"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/filestore"
	"github.com/dmitrijs2005/securelink/internal/server/models"
)

// Download is an opened plaintext copy ready to be streamed. The caller
// must Close it.
type Download struct {
	Filename string
	Size     int64
	*os.File
}

// DownloadService turns an authorized record into a readable file.
type DownloadService struct {
	blobs blobstore.Store
	files *filestore.Store
	purge bool
	log   logging.Logger
}

func NewDownloadService(cfg *config.Config, blobs blobstore.Store, files *filestore.Store, log logging.Logger) *DownloadService {
	return &DownloadService{
		blobs: blobs,
		files: files,
		purge: cfg.PurgeAfterDownload,
		log:   log.With("module", "download"),
	}
}

// Open fetches and decrypts the record's container and opens the plaintext.
// With purging enabled the scratch copy is unlinked right after opening;
// the returned handle stays readable.
func (s *DownloadService) Open(ctx context.Context, rec *models.FileRecord) (*Download, error) {
	containerPath, err := s.fetch(ctx, rec)
	if err != nil {
		return nil, err
	}

	f, path, err := s.materialize(ctx, containerPath)
	if errors.Is(err, os.ErrNotExist) {
		// another download purged the scratch copy, or the janitor swept the
		// cached container, between the steps above
		if containerPath, err = s.fetch(ctx, rec); err != nil {
			return nil, err
		}
		f, path, err = s.materialize(ctx, containerPath)
	}
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", common.ErrIO, err)
		}
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %w", common.ErrIO, err)
	}

	if s.purge {
		if err := s.files.Purge(path); err != nil {
			s.log.Warn(ctx, "purge scratch copy", "file_id", rec.ID, "error", err)
		}
	}

	return &Download{Filename: rec.Filename, Size: fi.Size(), File: f}, nil
}

func (s *DownloadService) fetch(ctx context.Context, rec *models.FileRecord) (string, error) {
	containerPath, err := s.blobs.Fetch(ctx, rec.StorageKey)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", fmt.Errorf("%w: container for %s is missing", common.ErrIO, rec.ID)
		}
		return "", err
	}
	return containerPath, nil
}

func (s *DownloadService) materialize(ctx context.Context, containerPath string) (*os.File, string, error) {
	path, err := s.files.MaterializeDecrypted(ctx, containerPath)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	return f, path, nil
}
