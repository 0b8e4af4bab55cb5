package blob

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LocalStore keeps uploads on the local filesystem under a root directory.
type LocalStore struct {
	root   string
	logger zerolog.Logger
}

// NewLocalStore creates the root directory if needed and returns the store.
func NewLocalStore(root string, logger zerolog.Logger) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("upload root must not be empty")
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}

	return &LocalStore{
		root:   root,
		logger: logger.With().Str("component", "local_blob_store").Logger(),
	}, nil
}

// Save writes the content under a collision-free name and returns the
// relative path.
func (s *LocalStore) Save(_ context.Context, name string, content io.Reader) (string, error) {
	relative := filepath.Join(uuid.NewString()[:8], sanitizeName(name))
	target := filepath.Join(s.root, relative)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, content); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}

	return relative, nil
}

// Get returns the bytes stored at the relative path.
func (s *LocalStore) Get(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.root, filepath.Clean(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read upload file: %w", err)
	}

	return data, nil
}

// Delete removes the file at the relative path.
func (s *LocalStore) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(s.root, filepath.Clean(path)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete upload file: %w", err)
	}

	return nil
}

func sanitizeName(name string) string {
	base := filepath.Base(name)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)

	if strings.Trim(base, "-._") == "" {
		base = "upload"
	}

	return base
}
