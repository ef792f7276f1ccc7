// Package cache keeps the public listing gallery in Redis.
//
// Entries are keyed by a version counter plus a hash of the filter. Any
// listing or agency mutation bumps the counter, which orphans every cached
// page at once; orphans expire through their TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/repository"
)

// Page is one cached gallery result.
type Page struct {
	Listings []domain.Listing `json:"listings"`
	Total    int              `json:"total"`
}

// LoadFunc produces a page on a cache miss.
type LoadFunc func(ctx context.Context) (Page, error)

// Gallery caches public gallery pages.
type Gallery interface {
	GetOrLoad(ctx context.Context, filter repository.ListingFilter, load LoadFunc) (Page, error)
	Invalidate(ctx context.Context) error
}

// Noop never caches.
type Noop struct{}

func (Noop) GetOrLoad(ctx context.Context, _ repository.ListingFilter, load LoadFunc) (Page, error) {
	return load(ctx)
}

func (Noop) Invalidate(context.Context) error { return nil }

// RedisGallery is a read-through gallery cache. Redis failures fall through
// to the loader.
type RedisGallery struct {
	rdb    goredis.Cmdable
	prefix string
	ttl    time.Duration
	logger *zap.Logger
	group  singleflight.Group
}

// NewRedisGallery creates a cache using prefix for every key.
func NewRedisGallery(rdb goredis.Cmdable, prefix string, ttl time.Duration, logger *zap.Logger) *RedisGallery {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisGallery{rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

func (g *RedisGallery) versionKey() string {
	return g.prefix + ":version"
}

func (g *RedisGallery) pageKey(version int64, filter repository.ListingFilter) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:v%d:%s", g.prefix, version, hex.EncodeToString(sum[:12])), nil
}

func (g *RedisGallery) version(ctx context.Context) (int64, error) {
	v, err := g.rdb.Get(ctx, g.versionKey()).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}

func (g *RedisGallery) GetOrLoad(ctx context.Context, filter repository.ListingFilter, load LoadFunc) (Page, error) {
	version, err := g.version(ctx)
	if err != nil {
		g.logger.Warn("gallery cache version lookup failed", zap.Error(err))
		return load(ctx)
	}
	key, err := g.pageKey(version, filter)
	if err != nil {
		return load(ctx)
	}

	if data, err := g.rdb.Get(ctx, key).Bytes(); err == nil {
		var page Page
		if err := json.Unmarshal(data, &page); err == nil {
			return page, nil
		}
		g.logger.Warn("discarding undecodable gallery entry", zap.String("key", key))
	} else if !errors.Is(err, goredis.Nil) {
		g.logger.Warn("gallery cache read failed", zap.String("key", key), zap.Error(err))
	}

	res, err, _ := g.group.Do(key, func() (any, error) {
		page, err := load(ctx)
		if err != nil {
			return Page{}, err
		}
		if encoded, err := json.Marshal(page); err == nil {
			if err := g.rdb.Set(ctx, key, encoded, g.ttl).Err(); err != nil {
				g.logger.Warn("gallery cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
		return page, nil
	})
	if err != nil {
		return Page{}, err
	}
	return res.(Page), nil
}

// Invalidate bumps the version so subsequent reads miss.
func (g *RedisGallery) Invalidate(ctx context.Context) error {
	if err := g.rdb.Incr(ctx, g.versionKey()).Err(); err != nil {
		return fmt.Errorf("invalidate gallery cache: %w", err)
	}
	return nil
}
