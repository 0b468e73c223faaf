// Package blobstore keeps sealed containers somewhere durable and hands
// back a local path whenever one has to be opened.
package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/securelink/internal/common"
)

type Store interface {
	// Put takes ownership of the container at containerPath and returns the
	// key under which it can be fetched later.
	Put(ctx context.Context, containerPath string) (string, error)
	// Fetch returns a local path of the container stored under key.
	// A missing object yields common.ErrorNotFound.
	Fetch(ctx context.Context, key string) (string, error)
	// Delete removes the container. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Local keeps containers where the engine wrote them; the key is the path.
type Local struct{}

func NewLocal() *Local { return &Local{} }

func (Local) Put(_ context.Context, containerPath string) (string, error) {
	fi, err := os.Stat(containerPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	if !fi.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s is not a regular file", common.ErrIO, containerPath)
	}
	return containerPath, nil
}

func (Local) Fetch(_ context.Context, key string) (string, error) {
	if _, err := os.Stat(key); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: container %s", common.ErrorNotFound, key)
		}
		return "", fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return key, nil
}

func (Local) Delete(_ context.Context, key string) error {
	if err := os.Remove(key); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%w: %w", common.ErrIO, err)
	}
	return nil
}
