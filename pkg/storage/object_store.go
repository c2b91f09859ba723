package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectStore persists uploaded files and resolves their public URLs. Stored
// URLs are written into entity rows, so URL must be stable for a given key.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	URL(key string) string
	Delete(ctx context.Context, key string) error
}

// RandomKey returns a collision-free object key preserving the original
// file extension.
func RandomKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return fmt.Sprintf("%s%s", uuid.NewString(), ext)
}
