// Package local implements port.ObjectStorage on a directory tree, one
// subdirectory per bucket. It backs the CLI and development servers.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"avplan/internal/port"
)

// Store keeps objects under root/bucket/key.
type Store struct {
	root string
}

// New creates the root directory if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving storage dir %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir %s: %w", abs, err)
	}
	return &Store{root: abs}, nil
}

func (s *Store) path(bucket, key string) (string, error) {
	clean := filepath.Clean(filepath.Join(s.root, bucket, filepath.FromSlash(key)))
	if !strings.HasPrefix(clean, filepath.Join(s.root, bucket)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return clean, nil
}

// Upload writes to a temp file and renames it into place so readers never
// observe a partial object.
func (s *Store) Upload(ctx context.Context, input port.UploadInput) (*port.UploadOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dst, err := s.path(input.Bucket, input.Key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("local upload %s: %w", input.Key, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("local upload %s: %w", input.Key, err)
	}
	if _, err := io.Copy(tmp, input.Body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("local upload %s: %w", input.Key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("local upload %s: %w", input.Key, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		_ = os.Remove(tmp.Name())
		return nil, fmt.Errorf("local upload %s: %w", input.Key, err)
	}
	return &port.UploadOutput{Location: dst}, nil
}

// Delete treats an already missing object as deleted.
func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("local delete %s: %w", key, err)
	}
	return nil
}

// GetPresignedURL returns a file:// URL; local objects need no signature.
func (s *Store) GetPresignedURL(ctx context.Context, bucket, key string, expirySeconds int64) (string, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}
