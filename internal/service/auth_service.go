package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/repository"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// AuthService coordinates registration, login and logout flows.
type AuthService struct {
	users      repository.UserRepository
	agencies   repository.AgencyRepository
	sessions   repository.SessionRepository
	tokenMgr   *auth.TokenManager
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	AgencyRepo   repository.AgencyRepository
	SessionRepo  repository.SessionRepository
	TokenManager *auth.TokenManager
	Dispatcher   events.Dispatcher
	Clock        clockwork.Clock
	Logger       *zap.Logger
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email       string
	Password    string
	Name        string
	AccountType string
	AgencyName  string
	City        string
	Country     string
	Phone       string
}

// AuthResult is a signed-in user with the issued session.
type AuthResult struct {
	User        *domain.User
	Agency      *domain.Agency
	AccountType domain.AccountType
	Token       string
	Session     domain.Session
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:      deps.UserRepo,
		agencies:   deps.AgencyRepo,
		sessions:   deps.SessionRepo,
		tokenMgr:   deps.TokenManager,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Register creates an account. Agency owners get a new agency in the same
// transaction; the very first account becomes the super admin.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fieldError("email", "a valid email is required")
	}
	if len(in.Password) < auth.MinPasswordLength {
		return nil, fieldError("password", "password must be at least 6 characters")
	}

	accountType := domain.AccountType(strings.ToUpper(strings.TrimSpace(in.AccountType)))
	if accountType == "" {
		accountType = domain.AccountTypeAgencyOwner
	}
	if accountType != domain.AccountTypeAgencyOwner && accountType != domain.AccountTypeUserOnly {
		return nil, fieldError("accountType", "accountType must be AGENCY_OWNER or USER_ONLY")
	}

	agencyName := strings.TrimSpace(in.AgencyName)
	city := strings.TrimSpace(in.City)
	country := strings.TrimSpace(in.Country)
	if accountType == domain.AccountTypeAgencyOwner {
		switch {
		case agencyName == "":
			return nil, fieldError("agencyName", "agencyName is required")
		case city == "":
			return nil, fieldError("city", "city is required")
		case country == "":
			return nil, fieldError("country", "country is required")
		}
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        email,
		Name:         displayName(in.Name, agencyName, email),
		PasswordHash: hash,
		Role:         domain.RoleAgent,
		IsActive:     true,
	}

	var agency *domain.Agency
	if accountType == domain.AccountTypeAgencyOwner {
		count, err := s.users.Count(ctx)
		if err != nil {
			return nil, err
		}
		user.Role = domain.RoleAgencyAdmin
		if count == 0 {
			user.Role = domain.RoleSuperAdmin
		}

		slug, err := uniqueAgencySlug(ctx, s.agencies, agencyName)
		if err != nil {
			return nil, err
		}
		agency = &domain.Agency{
			Name:     agencyName,
			Slug:     slug,
			City:     city,
			Country:  country,
			Email:    &email,
			Phone:    trimmedPtr(&in.Phone),
			Plan:     domain.AgencyPlanFree,
			IsActive: true,
		}
		if err := s.users.CreateWithAgency(ctx, agency, user); err != nil {
			return nil, err
		}
		user.Agency = agency
	} else {
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	token, session, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}

	actor := events.ActorFor(user)
	now := s.clock.Now()
	if agency != nil {
		s.publish(ctx, events.NewEvent(events.EventAgencyCreated, agency.ID, &agency.ID, actor, now, events.NewAgencyPayload(agency)))
	}
	s.publish(ctx, events.NewEvent(events.EventUserRegistered, user.ID, user.AgencyID, actor, now, events.UserRegisteredPayload{
		Email:       user.Email,
		Role:        user.Role,
		AccountType: accountType,
	}))

	return &AuthResult{User: user, Agency: agency, AccountType: accountType, Token: token, Session: session}, nil
}

// Login verifies credentials, stamps lastLoginAt and issues a session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		if auth.IsMismatch(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperrors.NewForbidden("account is disabled")
	}

	now := s.clock.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, err
	}
	user.LastLoginAt = &now

	token, session, err := s.tokenMgr.GenerateToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Agency: user.Agency, Token: token, Session: session}, nil
}

// Logout revokes the session until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, session domain.Session) error {
	if session.ID == "" {
		return nil
	}
	if !session.ExpiresAt.After(s.clock.Now()) {
		return nil
	}
	// Revocation degrades open, matching the session lookup.
	if err := s.sessions.Revoke(ctx, session.ID, session.ExpiresAt); err != nil {
		s.logger.Warn("failed to revoke session", zap.String("session_id", session.ID), zap.Error(err))
	}
	return nil
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// displayName falls back to the agency name, then the email local part.
func displayName(name, agencyName, email string) string {
	if n := strings.TrimSpace(name); n != "" {
		return n
	}
	if agencyName != "" {
		return agencyName
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}
