// Package imaging handles diagnostic scan uploads: content validation, file
// storage, and the Scan records registered in the coordinating store. It
// ships a disk-backed FileStore for serving and an in-memory one for tests.
package imaging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound   = errors.New("scan file not found")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrBadContentType = errors.New("content type is not allowed")
)

// MaxFileSize is the upload ceiling in bytes (50 MB).
const MaxFileSize = 50 * 1024 * 1024

// AllowedContentTypes lists the diagnostic file MIME types accepted for
// upload.
var AllowedContentTypes = map[string]bool{
	"image/png":         true,
	"image/jpeg":        true,
	"image/dicom":       true,
	"application/dicom": true,
	"application/pdf":   true,
}

// FileStore persists scan content addressed by a store-relative path.
type FileStore interface {
	Save(ctx context.Context, name string, content io.Reader) (path string, size int64, err error)
	Open(ctx context.Context, path string) (io.ReadCloser, error)
	Remove(ctx context.Context, path string) error
}

// DiskStore writes scan files under a base directory, one file per upload,
// named by a fresh uuid so original filenames never collide.
type DiskStore struct {
	base string
}

func NewDiskStore(base string) (*DiskStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, fmt.Errorf("create scan directory %s: %w", base, err)
	}
	return &DiskStore{base: base}, nil
}

func (d *DiskStore) Save(_ context.Context, name string, content io.Reader) (string, int64, error) {
	data, err := readLimited(content)
	if err != nil {
		return "", 0, err
	}
	path := uuid.New().String() + filepath.Ext(name)
	if err := os.WriteFile(filepath.Join(d.base, path), data, 0o644); err != nil {
		return "", 0, fmt.Errorf("write scan file: %w", err)
	}
	return path, int64(len(data)), nil
}

func (d *DiskStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.base, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	return f, err
}

func (d *DiskStore) Remove(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(d.base, filepath.Base(path)))
	if errors.Is(err, os.ErrNotExist) {
		return ErrFileNotFound
	}
	return err
}

// MemoryStore is a thread-safe in-memory FileStore for tests and
// development.
type MemoryStore struct {
	mu    sync.RWMutex
	files map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{files: make(map[string][]byte)}
}

func (m *MemoryStore) Save(_ context.Context, name string, content io.Reader) (string, int64, error) {
	data, err := readLimited(content)
	if err != nil {
		return "", 0, err
	}
	path := uuid.New().String() + filepath.Ext(name)
	m.mu.Lock()
	m.files[path] = data
	m.mu.Unlock()
	return path, int64(len(data)), nil
}

func (m *MemoryStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	m.mu.RLock()
	data, ok := m.files[path]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *MemoryStore) Remove(_ context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.files[path]; !ok {
		return ErrFileNotFound
	}
	delete(m.files, path)
	return nil
}

// readLimited reads content into memory, enforcing MaxFileSize.
func readLimited(content io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > MaxFileSize {
		return nil, ErrFileTooLarge
	}
	return data, nil
}
