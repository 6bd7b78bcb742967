// Package blob stores product files under slash-separated keys.
package blob

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
)

// ErrNotFound is returned when no object exists for a key.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored blob.
type Object struct {
	Size        int64
	ContentType string
}

// Store reads and writes blobs by key.
type Store interface {
	Open(ctx context.Context, key string) (io.ReadCloser, Object, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Delete removes key. A missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// ContentTypeFor guesses a content type from the key's extension.
func ContentTypeFor(key string) string {
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
