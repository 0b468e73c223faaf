// Package filex contains small filesystem helpers: directory bootstrap,
// atomic writes and upload filename sanitizing.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureDir creates dir (and parents) with perm if it does not exist and
// returns its absolute path.
func EnsureDir(dir string, perm os.FileMode) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", dir, err)
	}

	if err := os.MkdirAll(abs, perm); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", abs, err)
	}

	return abs, nil
}

// WriteAtomic creates a temp file next to path, lets fill write into it,
// fsyncs and renames it over path. On any error the temp file is removed and
// path is left untouched.
func WriteAtomic(path string, perm os.FileMode, fill func(f *os.File) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = fill(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(perm); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("fsync %s: %w", tmpName, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err = os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// WriteFileAtomic is WriteAtomic for an in-memory payload.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	return WriteAtomic(path, perm, func(f *os.File) error {
		if _, err := f.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", f.Name(), err)
		}
		return nil
	})
}

// MaxFilenameLen caps sanitized names so that derived names (storage
// prefix, container suffix, temp-file decoration) stay within NAME_MAX.
const MaxFilenameLen = 128

// SanitizeFilename reduces a client supplied name to a safe base name:
// directory parts are dropped, whitespace becomes '_', anything outside
// [A-Za-z0-9._-] is removed and leading/trailing dots and underscores are
// trimmed. Names longer than MaxFilenameLen lose the end of their stem; the
// extension is kept. The result may be empty.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), "._")
	if out == "" || strings.Trim(out, ".") == "" {
		return ""
	}
	return truncateName(out)
}

// truncateName shortens an ASCII name to MaxFilenameLen.
func truncateName(name string) string {
	if len(name) <= MaxFilenameLen {
		return name
	}
	ext := filepath.Ext(name)
	if len(ext) > MaxFilenameLen/4 {
		ext = ""
	}
	stem := strings.TrimSuffix(name, ext)
	return strings.TrimRight(stem[:MaxFilenameLen-len(ext)], "._") + ext
}

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
