// Package blob abstracts where uploaded attachment bytes live. Records in
// the database keep an opaque path; a Store resolves that path to bytes.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound indicates no object exists at the requested path.
var ErrNotFound = errors.New("blob not found")

// Store persists and retrieves raw file content by opaque path.
type Store interface {
	// Save writes the content and returns the path to fetch it by.
	Save(ctx context.Context, name string, content io.Reader) (string, error)
	// Get returns the raw bytes stored at path, or ErrNotFound.
	Get(ctx context.Context, path string) ([]byte, error)
	// Delete removes the object at path. Deleting a missing object is not
	// an error.
	Delete(ctx context.Context, path string) error
}
