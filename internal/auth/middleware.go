package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/repository"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User    *domain.User
	Session domain.Session
}

// SessionMiddleware resolves the session cookie into a principal. A missing,
// malformed, expired or revoked cookie leaves the request anonymous.
type SessionMiddleware struct {
	tokens     *TokenManager
	users      repository.UserRepository
	sessions   repository.SessionRepository
	cookieName string
	logger     *zap.Logger
}

// NewSessionMiddleware constructs middleware.
func NewSessionMiddleware(tokens *TokenManager, users repository.UserRepository, sessions repository.SessionRepository, cookieName string, logger *zap.Logger) *SessionMiddleware {
	return &SessionMiddleware{
		tokens:     tokens,
		users:      users,
		sessions:   sessions,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Handle loads the principal, if any, and always continues the chain.
func (m *SessionMiddleware) Handle(c *fiber.Ctx) error {
	raw := c.Cookies(m.cookieName)
	if raw == "" {
		return c.Next()
	}

	session, err := m.tokens.ParseToken(raw)
	if err != nil {
		m.logger.Debug("ignoring invalid session cookie", zap.Error(err))
		return c.Next()
	}

	revoked, err := m.sessions.IsRevoked(c.UserContext(), session.ID)
	if err != nil {
		// Revocation lookups degrade open while redis is unavailable.
		m.logger.Warn("session revocation check failed", zap.String("session_id", session.ID), zap.Error(err))
	}
	if revoked {
		return c.Next()
	}

	user, err := m.users.GetByID(c.UserContext(), session.UserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return c.Next()
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return c.Next()
	}

	c.Locals(principalKey, &Principal{User: user, Session: session})
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok && principal != nil && principal.User != nil
}

// UserFromContext returns the authenticated user or nil for anonymous callers.
func UserFromContext(c *fiber.Ctx) *domain.User {
	if principal, ok := PrincipalFromContext(c); ok {
		return principal.User
	}
	return nil
}
