// Package storagetest provides an in-memory BlobStore for tests.
package storagetest

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/spec-kit/agency-listings/internal/storage"
)

type blob struct {
	contentType string
	data        []byte
}

// MemoryStore is a goroutine-safe BlobStore backed by a map.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]blob
	// FailWith makes every call return the given error when set.
	FailWith error
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]blob{}}
}

func (m *MemoryStore) Put(_ context.Context, path, contentType string, body io.Reader) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[path] = blob{contentType: contentType, data: data}
	return nil
}

func (m *MemoryStore) Open(_ context.Context, path string) (io.ReadCloser, storage.Object, error) {
	if m.FailWith != nil {
		return nil, storage.Object{}, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[path]
	if !ok {
		return nil, storage.Object{}, storage.ErrNotFound
	}
	obj := storage.Object{Path: path, ContentType: b.contentType, Size: int64(len(b.data))}
	return io.NopCloser(bytes.NewReader(b.data)), obj, nil
}

func (m *MemoryStore) Delete(_ context.Context, path string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[path]; !ok {
		return storage.ErrNotFound
	}
	delete(m.objects, path)
	return nil
}

func (m *MemoryStore) Ping(context.Context) error {
	return m.FailWith
}

// Paths lists stored paths in sorted order.
func (m *MemoryStore) Paths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for p := range m.objects {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
