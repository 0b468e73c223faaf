// Package cryptox implements the encrypted container used for files at rest
// and the providers that supply its key.
//
// A container is laid out as
//
//	nonce (16 bytes) || tag (16 bytes) || ciphertext
//
// and sealed with AES-GCM using a 16-byte nonce. Every Open verifies the tag
// before any plaintext is released.
package cryptox

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/securelink/internal/common"
	"github.com/dmitrijs2005/securelink/internal/filex"
)

const (
	NonceSize = 16
	TagSize   = 16
	// HeaderSize is the fixed prefix every container carries.
	HeaderSize = NonceSize + TagSize
)

// randReader is the nonce source; tests may replace it.
var randReader io.Reader = rand.Reader

// Engine seals and opens containers. It holds no state besides its key
// provider and is safe for concurrent use.
type Engine struct {
	keys KeyProvider
}

func NewEngine(keys KeyProvider) *Engine {
	return &Engine{keys: keys}
}

func (e *Engine) aead(ctx context.Context) (cipher.AEAD, error) {
	key, err := e.keys.Key(ctx)
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}
	if err := validateKeyLen(len(key)); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, NonceSize)
}

// SealBytes encrypts plaintext and returns the full container.
func (e *Engine) SealBytes(ctx context.Context, plaintext []byte) ([]byte, error) {
	gcm, err := e.aead(ctx)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(randReader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	// GCM appends the tag to the ciphertext; the container stores it up front.
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	ctLen := len(sealed) - TagSize

	out := make([]byte, 0, HeaderSize+ctLen)
	out = append(out, nonce...)
	out = append(out, sealed[ctLen:]...)
	out = append(out, sealed[:ctLen]...)
	return out, nil
}

// OpenBytes verifies and decrypts a container. Short input and tag mismatch
// both yield common.ErrIntegrity.
func (e *Engine) OpenBytes(ctx context.Context, container []byte) ([]byte, error) {
	if len(container) < HeaderSize {
		return nil, fmt.Errorf("%w: container shorter than header", common.ErrIntegrity)
	}

	gcm, err := e.aead(ctx)
	if err != nil {
		return nil, err
	}

	nonce := container[:NonceSize]
	tag := container[NonceSize:HeaderSize]
	ct := container[HeaderSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, common.ErrIntegrity
	}
	return plaintext, nil
}

// Seal encrypts the file at plaintextPath into plaintextPath+".enc" and
// removes the plaintext once the container is durably in place.
func (e *Engine) Seal(ctx context.Context, plaintextPath string) (string, error) {
	plaintext, err := os.ReadFile(plaintextPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", common.ErrIO, plaintextPath, err)
	}
	defer common.WipeByteArray(plaintext)

	container, err := e.SealBytes(ctx, plaintext)
	if err != nil {
		return "", err
	}

	containerPath := plaintextPath + common.ContainerSuffix
	if err := filex.WriteFileAtomic(containerPath, container, 0o600); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}

	if err := os.Remove(plaintextPath); err != nil {
		_ = os.Remove(containerPath)
		return "", fmt.Errorf("%w: remove plaintext: %w", common.ErrIO, err)
	}

	return containerPath, nil
}

// Open decrypts containerPath into scratchDir under the container's base
// name minus ".enc". Nothing is written when verification fails.
func (e *Engine) Open(ctx context.Context, containerPath, scratchDir string) (string, error) {
	container, err := os.ReadFile(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", common.ErrIO, containerPath, err)
	}

	plaintext, err := e.OpenBytes(ctx, container)
	if err != nil {
		return "", err
	}
	defer common.WipeByteArray(plaintext)

	out := filepath.Join(scratchDir, PlainName(containerPath))
	if err := filex.WriteFileAtomic(out, plaintext, 0o600); err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return out, nil
}

// PlainName is the file name a container decrypts to.
func PlainName(containerPath string) string {
	return strings.TrimSuffix(filepath.Base(containerPath), common.ContainerSuffix)
}
