// Package storage keeps uploaded resource content outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotExist is returned by Open when no blob is stored under the key.
var ErrNotExist = errors.New("blob does not exist")

// Object is an opened blob. Callers must close Body.
type Object struct {
	Body        io.ReadCloser
	Size        int64 // -1 when unknown
	ContentType string
}

// Store saves and serves blobs addressed by opaque keys.
type Store interface {
	// Save stores the content of r and returns the key it can be opened with.
	Save(ctx context.Context, originalName string, r io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, key string) (*Object, error)
	Remove(ctx context.Context, key string) error
}

// NewKey builds a unique storage key that keeps the extension of the uploaded file name.
func NewKey(originalName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if len(ext) > 16 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return fmt.Sprintf("%d-%s%s", now.UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12], ext)
}

// validKey rejects keys that could escape the storage root.
func validKey(key string) bool {
	return key != "" && key != "." && key != ".." && !strings.ContainsAny(key, `/\`)
}
