package fs

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/sharedcode/shardvault"
)

var ctx = context.Background()

func Test_PutGetExistsDelete(t *testing.T) {
	backend, err := NewBlobBackend(nil, t.TempDir())
	if err != nil {
		t.Fatalf("NewBlobBackend: %v", err)
	}
	ba := []byte("shard bytes")
	if err := backend.Put(ctx, "a.txt.0.cafe0123", ba); err != nil {
		t.Fatalf("Put: %v", err)
	}
	found, err := backend.Exists(ctx, "a.txt.0.cafe0123")
	if err != nil || !found {
		t.Errorf("Exists got (%v, %v), expected (true, nil)", found, err)
	}
	got, err := backend.Get(ctx, "a.txt.0.cafe0123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, ba) {
		t.Errorf("Get got %q, expected %q", got, ba)
	}
	if err := backend.Delete(ctx, "a.txt.0.cafe0123"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	found, _ = backend.Exists(ctx, "a.txt.0.cafe0123")
	if found {
		t.Error("blob still exists after Delete")
	}
}

func Test_PutCreatesBaseFolder(t *testing.T) {
	base := filepath.Join(t.TempDir(), "drive1", "shards")
	backend, err := NewBlobBackend(nil, base)
	if err != nil {
		t.Fatalf("NewBlobBackend: %v", err)
	}
	if err := backend.Put(ctx, "a.txt.0.cafe0123", []byte("x")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := backend.Get(ctx, "a.txt.0.cafe0123")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "x" {
		t.Errorf("Get got %q, expected %q", got, "x")
	}
}

func Test_PutOverwrites(t *testing.T) {
	backend, _ := NewBlobBackend(nil, t.TempDir())
	if err := backend.Put(ctx, "a", []byte("old")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := backend.Put(ctx, "a", []byte("new")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := backend.Get(ctx, "a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Get got %q, expected %q", got, "new")
	}
}

func Test_GetMissing(t *testing.T) {
	backend, _ := NewBlobBackend(nil, t.TempDir())
	if _, err := backend.Get(ctx, "missing"); !errors.Is(err, shardvault.ErrBlobNotFound) {
		t.Errorf("Get got %v, expected ErrBlobNotFound", err)
	}
}

func Test_DeleteMissing(t *testing.T) {
	backend, _ := NewBlobBackend(nil, t.TempDir())
	if err := backend.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete of missing blob got %v, expected nil", err)
	}
}

func Test_EmptyBlob(t *testing.T) {
	backend, _ := NewBlobBackend(nil, t.TempDir())
	if err := backend.Put(ctx, "empty", nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	found, _ := backend.Exists(ctx, "empty")
	if !found {
		t.Error("empty blob not found")
	}
	got, err := backend.Get(ctx, "empty")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Get got %d bytes, expected none", len(got))
	}
}

func Test_EmptyBaseFolderPath(t *testing.T) {
	if _, err := NewBlobBackend(nil, ""); err == nil {
		t.Error("expected an error for empty baseFolderPath")
	}
}
