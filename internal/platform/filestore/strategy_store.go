// Package filestore keeps the accepted strategy source on the local
// filesystem.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/multierr"

	"github.com/phrazzld/boxpack-api/internal/store"
)

// StrategyStore implements store.StrategySourceStore with a single file.
// Saves write a temporary file in the same directory, fsync it and rename it
// over the target, so readers see the old or the new source and nothing in
// between.
type StrategyStore struct {
	path string
	mu   sync.Mutex
}

var _ store.StrategySourceStore = (*StrategyStore)(nil)

// NewStrategyStore returns a store for path, creating its directory.
func NewStrategyStore(path string) (*StrategyStore, error) {
	if path == "" {
		return nil, errors.New("strategy path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create strategy directory: %w", err)
	}
	return &StrategyStore{path: path}, nil
}

// Path returns the file the source is stored in.
func (s *StrategyStore) Path() string {
	return s.path
}

// Load implements store.StrategySourceStore.
func (s *StrategyStore) Load(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.ErrStrategyNotFound
	}
	if err != nil {
		return nil, store.NewStoreError("strategy source", "load", "read failed", err)
	}
	return data, nil
}

// Save implements store.StrategySourceStore.
func (s *StrategyStore) Save(ctx context.Context, source []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return store.NewStoreError("strategy source", "save", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			err = multierr.Append(err, ignoreNotExist(os.Remove(tmpName)))
		}
	}()

	if _, err = tmp.Write(source); err != nil {
		_ = tmp.Close()
		return store.NewStoreError("strategy source", "save", "write temp file", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return store.NewStoreError("strategy source", "save", "sync temp file", err)
	}
	if err = tmp.Close(); err != nil {
		return store.NewStoreError("strategy source", "save", "close temp file", err)
	}
	if err = os.Chmod(tmpName, 0o640); err != nil {
		return store.NewStoreError("strategy source", "save", "chmod temp file", err)
	}
	if err = os.Rename(tmpName, s.path); err != nil {
		return store.NewStoreError("strategy source", "save", "replace source", err)
	}
	return nil
}

func ignoreNotExist(err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
