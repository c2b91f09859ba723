package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore implements ObjectStore on the local filesystem. Files land in a
// single directory served statically under /uploads/.
type DiskStore struct {
	dir     string
	baseURL string
}

// NewDiskStore ensures the upload directory exists. baseURL is the externally
// visible server address, e.g. "http://localhost:8080".
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{
		dir:     dir,
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
	}, nil
}

// Dir returns the directory files are written to.
func (d *DiskStore) Dir() string { return d.dir }

// Put writes the object to disk. Keys are generated server-side so path
// traversal is rejected rather than sanitized.
func (d *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if key == "" || key != filepath.Base(key) {
		return fmt.Errorf("invalid object key %q", key)
	}
	f, err := os.Create(filepath.Join(d.dir, key))
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write object file: %w", err)
	}
	return nil
}

// URL resolves the public URL for a stored key.
func (d *DiskStore) URL(key string) string {
	return d.baseURL + "/uploads/" + key
}

// Delete removes the stored file. A missing file is not an error.
func (d *DiskStore) Delete(ctx context.Context, key string) error {
	if key == "" || key != filepath.Base(key) {
		return fmt.Errorf("invalid object key %q", key)
	}
	err := os.Remove(filepath.Join(d.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object file: %w", err)
	}
	return nil
}
