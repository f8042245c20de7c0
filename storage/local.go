package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LocalStore keeps blobs as files in a single directory.
type LocalStore struct {
	root string
	now  func() time.Time
}

// NewLocalStore creates root if needed and returns a store writing into it.
func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &LocalStore{root: root, now: time.Now}, nil
}

// Save writes r to a new file. A partially written file is removed on failure.
func (s *LocalStore) Save(ctx context.Context, originalName string, r io.Reader, _ int64, _ string) (string, error) {
	key := NewKey(originalName, s.now())
	dst := filepath.Join(s.root, key)

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write blob: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close blob: %w", err)
	}
	return key, nil
}

// Open opens the file stored under key.
func (s *LocalStore) Open(_ context.Context, key string) (*Object, error) {
	if !validKey(key) {
		return nil, ErrNotExist
	}
	f, err := os.Open(filepath.Join(s.root, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotExist
		}
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, ErrNotExist
	}
	return &Object{Body: f, Size: info.Size()}, nil
}

// Remove deletes the file stored under key. Removing a missing file is not an error.
func (s *LocalStore) Remove(_ context.Context, key string) error {
	if !validKey(key) {
		return nil
	}
	err := os.Remove(filepath.Join(s.root, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
