package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDiskStorePutURLDelete(t *testing.T) {
	dir := t.TempDir()
	ds, err := NewDiskStore(dir, "http://localhost:8080/")
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}

	key := RandomKey("avatar.PNG")
	if !strings.HasSuffix(key, ".png") {
		t.Fatalf("expected lowercased extension, got %q", key)
	}
	if err := ds.Put(context.Background(), key, strings.NewReader("image-bytes"), 11, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, key))
	if err != nil {
		t.Fatalf("read stored file: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected stored content %q", data)
	}

	if got, want := ds.URL(key), "http://localhost:8080/uploads/"+key; got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}

	if err := ds.Delete(context.Background(), key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, key)); !os.IsNotExist(err) {
		t.Fatalf("expected file removed, err = %v", err)
	}
	// deleting twice is fine
	if err := ds.Delete(context.Background(), key); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestDiskStoreRejectsPathTraversal(t *testing.T) {
	ds, err := NewDiskStore(t.TempDir(), "http://localhost:8080")
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	if err := ds.Put(context.Background(), "../escape.txt", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if err := ds.Delete(context.Background(), "../escape.txt"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}

func TestRandomKeyUniqueness(t *testing.T) {
	if RandomKey("a.jpg") == RandomKey("a.jpg") {
		t.Fatalf("expected distinct keys")
	}
}
