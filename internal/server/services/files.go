package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/securelink/internal/logging"
	"github.com/dmitrijs2005/securelink/internal/server/blobstore"
	"github.com/dmitrijs2005/securelink/internal/server/config"
	"github.com/dmitrijs2005/securelink/internal/server/filestore"
	"github.com/dmitrijs2005/securelink/internal/server/models"
	"github.com/dmitrijs2005/securelink/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// Sealer turns a plaintext file into a container, removing the plaintext.
type Sealer interface {
	Seal(ctx context.Context, plaintextPath string) (string, error)
}

// ShareLink is what an owner hands to a recipient.
type ShareLink struct {
	FileID    string    `json:"file_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	URL       string    `json:"url"`
}

// FileService implements the owner side: upload, listing and sharing.
type FileService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	files       *filestore.Store
	sealer      Sealer
	blobs       blobstore.Store
	issuer      *TokenIssuer
	baseURL     string
	log         logging.Logger
	now         func() time.Time
}

func NewFileService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	files *filestore.Store, sealer Sealer, blobs blobstore.Store, issuer *TokenIssuer, log logging.Logger) *FileService {
	return &FileService{
		db:          db,
		repomanager: m,
		files:       files,
		sealer:      sealer,
		blobs:       blobs,
		issuer:      issuer,
		baseURL:     strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:         log.With("module", "files"),
		now:         time.Now,
	}
}

// Upload stores r encrypted and records it for ownerID. The record is only
// inserted once the container is in place, and the container is removed
// again if the insert fails.
func (s *FileService) Upload(ctx context.Context, ownerID, filename string, r io.Reader) (*models.FileRecord, error) {
	path, name, err := s.files.SaveUpload(r, filename)
	if err != nil {
		return nil, err
	}

	containerPath, err := s.sealer.Seal(ctx, path)
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("seal upload: %w", err)
	}

	key, err := s.blobs.Put(ctx, containerPath)
	if err != nil {
		_ = os.Remove(containerPath)
		return nil, fmt.Errorf("store container: %w", err)
	}

	rec := &models.FileRecord{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Filename:   name,
		StorageKey: key,
		UploadedAt: s.now().UTC(),
	}
	if err := s.repomanager.Files(s.db).Insert(ctx, rec); err != nil {
		if derr := s.blobs.Delete(ctx, key); derr != nil {
			s.log.Error(ctx, "orphaned container", "key", key, "error", derr)
		}
		return nil, err
	}

	s.log.Info(ctx, "file uploaded", "file_id", rec.ID, "owner_id", ownerID)
	return rec, nil
}

// List returns ownerID's records, newest first.
func (s *FileService) List(ctx context.Context, ownerID string) ([]*models.FileRecord, error) {
	return s.repomanager.Files(s.db).ListByOwner(ctx, ownerID)
}

// Share issues (or re-uses) the link token for fileID.
func (s *FileService) Share(ctx context.Context, ownerID, fileID string) (*ShareLink, error) {
	rec, err := s.issuer.Issue(ctx, ownerID, fileID)
	if err != nil {
		return nil, err
	}
	if !rec.Shared() {
		return nil, errors.New("issued record has no token")
	}

	link := &ShareLink{
		FileID:    rec.ID,
		Token:     *rec.Token,
		ExpiresAt: *rec.TokenExpiresAt,
		URL:       s.LinkURL(*rec.Token),
	}
	s.log.Info(ctx, "link shared", "file_id", rec.ID, "expires_at", link.ExpiresAt)
	return link, nil
}

// LinkURL is the public recipient URL for token.
func (s *FileService) LinkURL(token string) string {
	return s.baseURL + "/s/" + url.PathEscape(token)
}
