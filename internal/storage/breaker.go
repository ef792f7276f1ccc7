package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type openResult struct {
	body io.ReadCloser
	obj  Object
}

// BreakerStore guards a BlobStore with a circuit breaker so a dead blob
// backend fails fast instead of holding request goroutines.
type BreakerStore struct {
	next BlobStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore trips after five consecutive failures and probes again after timeout.
func NewBreakerStore(next BlobStore, timeout time.Duration, logger *zap.Logger) *BreakerStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        "blobstore",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Warn("circuit breaker state changed",
					zap.String("component", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			}
		},
	}
	return &BreakerStore{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

// State reports the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerStore) Put(ctx context.Context, path, contentType string, body io.Reader) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Put(ctx, path, contentType, body)
	})
	return err
}

func (b *BreakerStore) Open(ctx context.Context, path string) (io.ReadCloser, Object, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		body, obj, err := b.next.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return openResult{body: body, obj: obj}, nil
	})
	if err != nil {
		return nil, Object{}, err
	}
	out := res.(openResult)
	return out.body, out.obj, nil
}

func (b *BreakerStore) Delete(ctx context.Context, path string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, path)
	})
	return err
}

// Ping bypasses the breaker so readiness reflects the backend itself.
func (b *BreakerStore) Ping(ctx context.Context) error {
	return b.next.Ping(ctx)
}
