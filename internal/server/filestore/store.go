// Package filestore owns the on-disk working areas: incoming (fresh
// uploads and their containers), scratch (decrypted copies served to
// recipients) and cache (containers fetched from remote storage).
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/cryptox"
	"github.com/dmitrijs2005/securelink/internal/filex"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const dirPerm = 0o700

// Opener decrypts a container into a directory.
type Opener interface {
	Open(ctx context.Context, containerPath, scratchDir string) (string, error)
}

type Options struct {
	// MaxSize caps upload size in bytes; zero means unlimited.
	MaxSize int64
	// AllowedExtensions is the extension allow-list (no dots, any case).
	// Empty allows every extension.
	AllowedExtensions []string
}

type Store struct {
	incoming string
	scratch  string
	cache    string

	maxSize int64
	allowed map[string]struct{}

	opener Opener
	group  singleflight.Group
	now    func() time.Time
}

func New(dataDir string, opener Opener, opts Options) *Store {
	s := &Store{
		incoming: filepath.Join(dataDir, "incoming"),
		scratch:  filepath.Join(dataDir, "scratch"),
		cache:    filepath.Join(dataDir, "cache"),
		maxSize:  opts.MaxSize,
		opener:   opener,
		now:      time.Now,
	}
	if len(opts.AllowedExtensions) > 0 {
		s.allowed = make(map[string]struct{}, len(opts.AllowedExtensions))
		for _, e := range opts.AllowedExtensions {
			s.allowed[strings.ToLower(strings.TrimPrefix(e, "."))] = struct{}{}
		}
	}
	return s
}

func (s *Store) IncomingDir() string { return s.incoming }
func (s *Store) ScratchDir() string  { return s.scratch }
func (s *Store) CacheDir() string    { return s.cache }

// Bootstrap creates the working directories with owner-only permissions.
func (s *Store) Bootstrap() error {
	for _, d := range []string{s.incoming, s.scratch, s.cache} {
		if _, err := filex.EnsureDir(d, dirPerm); err != nil {
			return fmt.Errorf("%w: %w", common.ErrIO, err)
		}
	}
	return nil
}

// SaveUpload writes r into incoming/<uuid>-<sanitized name> and returns the
// path together with the sanitized display name.
func (s *Store) SaveUpload(r io.Reader, filename string) (path, name string, err error) {
	name = filex.SanitizeFilename(filename)
	if name == "" {
		return "", "", common.ErrInvalidFilename
	}
	if s.allowed != nil {
		if _, ok := s.allowed[filex.Extension(name)]; !ok {
			return "", "", common.ErrExtensionNotAllowed
		}
	}

	path = filepath.Join(s.incoming, uuid.NewString()+"-"+name)

	err = filex.WriteAtomic(path, 0o600, func(f *os.File) error {
		src := r
		if s.maxSize > 0 {
			src = io.LimitReader(r, s.maxSize+1)
		}
		n, err := io.Copy(f, src)
		if err != nil {
			return fmt.Errorf("%w: write upload: %w", common.ErrIO, err)
		}
		if s.maxSize > 0 && n > s.maxSize {
			return common.ErrFileTooLarge
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrFileTooLarge) || errors.Is(err, common.ErrIO) {
			return "", "", err
		}
		return "", "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return path, name, nil
}

// MaterializeDecrypted returns the scratch path of the decrypted container,
// decrypting it only when no copy exists yet. Concurrent calls for the same
// container share one decryption.
func (s *Store) MaterializeDecrypted(ctx context.Context, containerPath string) (string, error) {
	name := cryptox.PlainName(containerPath)
	target := filepath.Join(s.scratch, name)

	if isRegular(target) {
		return target, nil
	}

	v, err, _ := s.group.Do(name, func() (any, error) {
		if isRegular(target) {
			return target, nil
		}
		return s.opener.Open(ctx, containerPath, s.scratch)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Purge removes a decrypted copy. Paths outside scratch are refused.
func (s *Store) Purge(path string) error {
	rel, err := filepath.Rel(s.scratch, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") || strings.ContainsRune(rel, filepath.Separator) {
		return fmt.Errorf("%w: %s is not a scratch file", common.ErrIO, path)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return nil
}

// SweepScratch removes scratch files last modified more than maxAge ago.
func (s *Store) SweepScratch(maxAge time.Duration) (int, error) {
	return s.sweep(s.scratch, maxAge)
}

// SweepCache removes cached remote containers older than maxAge.
func (s *Store) SweepCache(maxAge time.Duration) (int, error) {
	return s.sweep(s.cache, maxAge)
}

func (s *Store) sweep(dir string, maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %w", common.ErrIO, err)
	}

	cutoff := s.now().Add(-maxAge)
	removed := 0
	var errs []error
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}

func isRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
