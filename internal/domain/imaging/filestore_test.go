package imaging

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

func TestMemoryStore_SaveOpenRemove(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	path, size, err := store.Save(ctx, "chest.png", strings.NewReader("png-bytes"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != int64(len("png-bytes")) {
		t.Errorf("expected size %d, got %d", len("png-bytes"), size)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Errorf("expected path to keep the extension, got %s", path)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "png-bytes" {
		t.Errorf("unexpected content %q", data)
	}

	if err := store.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(ctx, path); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound after remove, got %v", err)
	}
	if err := store.Remove(ctx, path); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound on double remove, got %v", err)
	}
}

func TestMemoryStore_UniquePaths(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	p1, _, _ := store.Save(ctx, "scan.png", strings.NewReader("a"))
	p2, _, _ := store.Save(ctx, "scan.png", strings.NewReader("b"))
	if p1 == p2 {
		t.Errorf("same file name must not collide: %s", p1)
	}
}

func TestDiskStore_SaveOpenRemove(t *testing.T) {
	store, err := NewDiskStore(t.TempDir())
	if err != nil {
		t.Fatalf("new disk store: %v", err)
	}
	ctx := context.Background()

	path, size, err := store.Save(ctx, "report.pdf", bytes.NewReader([]byte("pdf-bytes")))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if size != 9 {
		t.Errorf("expected size 9, got %d", size)
	}

	rc, err := store.Open(ctx, path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "pdf-bytes" {
		t.Errorf("unexpected content %q", data)
	}

	if err := store.Remove(ctx, path); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := store.Open(ctx, path); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("expected ErrFileNotFound, got %v", err)
	}
}

func TestReadLimited_SizeCap(t *testing.T) {
	over := io.LimitReader(zeroReader{}, MaxFileSize+1)
	if _, err := readLimited(over); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}

	data, err := readLimited(strings.NewReader("small"))
	if err != nil {
		t.Fatalf("readLimited: %v", err)
	}
	if string(data) != "small" {
		t.Errorf("unexpected content %q", data)
	}
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = 0
	}
	return len(p), nil
}
