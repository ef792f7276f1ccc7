package storage_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/storage"
	"github.com/spec-kit/agency-listings/internal/storage/storagetest"
)

func TestURLMapper(t *testing.T) {
	m := storage.URLMapper{BaseURL: "https://api.example.com/"}

	url := m.PublicURL("listings/1-0-a.jpg")
	assert.Equal(t, "https://api.example.com/files/listings/1-0-a.jpg", url)

	path, ok := m.PathFromURL(url)
	require.True(t, ok)
	assert.Equal(t, "listings/1-0-a.jpg", path)

	_, ok = m.PathFromURL("https://cdn.other.com/files/listings/x.jpg")
	assert.False(t, ok)
	_, ok = m.PathFromURL("https://api.example.com/files/../secret")
	assert.False(t, ok)
}

func TestURLMapper_EscapesSegments(t *testing.T) {
	m := storage.URLMapper{BaseURL: "https://api.example.com"}

	cases := map[string]string{
		"listings/1-0-photo#1.jpg": "https://api.example.com/files/listings/1-0-photo%231.jpg",
		"listings/1-0-a?b.jpg":     "https://api.example.com/files/listings/1-0-a%3Fb.jpg",
		"listings/1-0-été.jpg":     "https://api.example.com/files/listings/1-0-%C3%A9t%C3%A9.jpg",
		"listings/1-0-100%.jpg":    "https://api.example.com/files/listings/1-0-100%25.jpg",
	}
	for path, want := range cases {
		url := m.PublicURL(path)
		assert.Equal(t, want, url)

		back, ok := m.PathFromURL(url)
		require.True(t, ok, path)
		assert.Equal(t, path, back)
	}

	_, ok := m.PathFromURL("https://api.example.com/files/listings/%zz.jpg")
	assert.False(t, ok)
}

func TestBreakerStore_PassesThrough(t *testing.T) {
	mem := storagetest.NewMemoryStore()
	store := storage.NewBreakerStore(mem, time.Minute, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "listings/a.png", "image/png", strings.NewReader("png")))

	body, obj, err := store.Open(ctx, "listings/a.png")
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
	assert.Equal(t, "image/png", obj.ContentType)

	_, _, err = store.Open(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "listings/a.png"))
	assert.Empty(t, mem.Paths())
}

func TestBreakerStore_TripsOnRepeatedFailures(t *testing.T) {
	mem := storagetest.NewMemoryStore()
	mem.FailWith = errors.New("connection refused")
	store := storage.NewBreakerStore(mem, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Put(ctx, "p", "image/png", strings.NewReader("x"))
		assert.EqualError(t, err, "connection refused")
	}
	assert.Equal(t, gobreaker.StateOpen, store.State())

	err := store.Put(ctx, "p", "image/png", strings.NewReader("x"))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerStore_NotFoundDoesNotTrip(t *testing.T) {
	store := storage.NewBreakerStore(storagetest.NewMemoryStore(), time.Minute, zap.NewNop())
	for i := 0; i < 10; i++ {
		_, _, err := store.Open(context.Background(), "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	}
	assert.Equal(t, gobreaker.StateClosed, store.State())
}
