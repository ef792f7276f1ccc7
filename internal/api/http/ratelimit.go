package http

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/spec-kit/agency-listings/internal/config"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

const defaultRateLimiterExpiry = 5 * time.Minute

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiterStore keeps one token bucket per client identifier and forgets
// identifiers that have been idle for longer than expiresIn.
type rateLimiterStore struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	expiresIn   time.Duration
	lastCleanup time.Time
	clock       clockwork.Clock
}

func newRateLimiterStore(limit rate.Limit, burst int, expiresIn time.Duration, clock clockwork.Clock) *rateLimiterStore {
	if expiresIn <= 0 {
		expiresIn = defaultRateLimiterExpiry
	}
	if burst < 1 {
		burst = 1
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &rateLimiterStore{
		visitors:    make(map[string]*visitor),
		limit:       limit,
		burst:       burst,
		expiresIn:   expiresIn,
		lastCleanup: clock.Now(),
		clock:       clock,
	}
}

// Allow reports whether identifier may make one more request now.
func (s *rateLimiterStore) Allow(identifier string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	v, ok := s.visitors[identifier]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.visitors[identifier] = v
	}
	v.lastSeen = now
	if now.Sub(s.lastCleanup) > s.expiresIn {
		s.cleanupStale(now)
	}
	return v.limiter.AllowN(now, 1)
}

func (s *rateLimiterStore) cleanupStale(now time.Time) {
	for id, v := range s.visitors {
		if now.Sub(v.lastSeen) > s.expiresIn {
			delete(s.visitors, id)
		}
	}
	s.lastCleanup = now
}

func (s *rateLimiterStore) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.visitors)
}

// NewRateLimiter throttles requests per client IP. A disabled config yields a pass-through handler.
func NewRateLimiter(cfg config.RateLimitConfig, clock clockwork.Clock) fiber.Handler {
	if !cfg.Enabled || cfg.RequestsPerMin <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	store := newRateLimiterStore(
		rate.Limit(float64(cfg.RequestsPerMin)/60.0),
		cfg.Burst,
		time.Duration(cfg.EntryExpirySecs)*time.Second,
		clock,
	)
	return rateLimitHandler(store)
}

func rateLimitHandler(store *rateLimiterStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !store.Allow(utils.CopyString(c.IP())) {
			return apperrors.NewRateLimited("rate limit exceeded")
		}
		return c.Next()
	}
}
