package kvstore

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/animuse/animuse/pkg/kv"
)

const (
	lockFileName   = ".lock"
	lockRetryDelay = 10 * time.Millisecond
)

// FileStore writes one file per key under a directory. Writes go through a
// temp file and rename so readers never observe a partial value, and an
// advisory lock serializes writers across processes sharing the directory.
type FileStore struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{dir: dir, lock: flock.New(filepath.Join(dir, lockFileName))}, nil
}

// Get implements kv.Store.
func (s *FileStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %q: %w", key, err)
	}
	return data, true, nil
}

// Set implements kv.Store.
func (s *FileStore) Set(ctx context.Context, key string, value []byte) error {
	return s.withLock(ctx, func() error {
		path := s.path(key)
		tmp, err := os.CreateTemp(s.dir, filepath.Base(path)+".*.tmp")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpName := tmp.Name()
		if _, err := tmp.Write(value); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("write temp file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("close temp file: %w", err)
		}
		if err := os.Rename(tmpName, path); err != nil {
			os.Remove(tmpName)
			return fmt.Errorf("rename temp file: %w", err)
		}
		return nil
	})
}

// Remove implements kv.Store.
func (s *FileStore) Remove(ctx context.Context, key string) error {
	return s.withLock(ctx, func() error {
		err := os.Remove(s.path(key))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", key, err)
		}
		return nil
	})
}

func (s *FileStore) withLock(ctx context.Context, fn func() error) error {
	// flock is per process; the mutex serializes goroutines within it
	s.mu.Lock()
	defer s.mu.Unlock()
	locked, err := s.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire store lock: %w", err)
	}
	if !locked {
		return errors.New("store lock not acquired")
	}
	defer s.lock.Unlock()
	return fn()
}

// path hex-encodes the key so user ids and separators are filesystem safe.
func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

var _ kv.Store = (*FileStore)(nil)
