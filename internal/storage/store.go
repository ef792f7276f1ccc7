// Package storage keeps uploaded listing images in a blob store and maps
// stored paths to the public URLs served under /files.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"strings"
)

// ErrNotFound is returned when no object is stored under a path.
var ErrNotFound = errors.New("storage: object not found")

// Object describes a stored blob.
type Object struct {
	Path        string
	ContentType string
	Size        int64
}

// BlobStore persists opaque objects by path.
type BlobStore interface {
	Put(ctx context.Context, path, contentType string, body io.Reader) error
	Open(ctx context.Context, path string) (io.ReadCloser, Object, error)
	Delete(ctx context.Context, path string) error
	Ping(ctx context.Context) error
}

// URLMapper converts between object paths and public URLs.
type URLMapper struct {
	BaseURL string
}

// PublicURL returns <base>/files/<path> with every path segment escaped.
func (m URLMapper) PublicURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(m.BaseURL, "/") + "/files/" + strings.Join(segments, "/")
}

// UnescapePath decodes an escaped object path as it appears in a request or
// a public URL.
func UnescapePath(escaped string) (string, error) {
	return url.PathUnescape(escaped)
}

// PathFromURL extracts the object path from a URL this service issued.
// URLs pointing elsewhere return false.
func (m URLMapper) PathFromURL(publicURL string) (string, bool) {
	prefix := strings.TrimRight(m.BaseURL, "/") + "/files/"
	if !strings.HasPrefix(publicURL, prefix) {
		return "", false
	}
	path, err := UnescapePath(strings.TrimPrefix(publicURL, prefix))
	if err != nil || path == "" || strings.Contains(path, "..") {
		return "", false
	}
	return path, true
}
