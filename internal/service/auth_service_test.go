package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/repository"
)

func newAuthService(f *fixture) *AuthService {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, et := range events.AllEventTypes() {
		dispatcher.Subscribe(et, f.recorded.handle)
	}
	cfg := config.Config{Auth: config.AuthConfig{BcryptCost: 4}}
	return NewAuthService(cfg, AuthDependencies{
		UserRepo:     f.store.Users(),
		AgencyRepo:   f.store.Agencies(),
		SessionRepo:  f.store.Sessions(),
		TokenManager: auth.NewTokenManager("secret", 7*24*time.Hour, f.clock),
		Dispatcher:   dispatcher,
		Clock:        f.clock,
	})
}

func TestAuthService_RegisterAgencyOwners(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	first, err := svc.Register(ctx, RegisterInput{Email: " Boss@Example.com ", Password: "secret1", AgencyName: "Riviera Homes", City: "Nice", Country: "FR"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSuperAdmin, first.User.Role)
	assert.Equal(t, "boss@example.com", first.User.Email)
	assert.Equal(t, "Riviera Homes", first.User.Name)
	assert.Equal(t, domain.AccountTypeAgencyOwner, first.AccountType)
	require.NotNil(t, first.Agency)
	assert.Equal(t, "riviera-homes", first.Agency.Slug)
	assert.Equal(t, first.Agency.ID, *first.User.AgencyID)
	assert.NotEmpty(t, first.Token)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), first.Session.ExpiresAt)

	second, err := svc.Register(ctx, RegisterInput{Email: "owner@example.com", Password: "secret1", Name: "Owner", AgencyName: "Riviera Homes", City: "Nice", Country: "FR"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgencyAdmin, second.User.Role)
	assert.Equal(t, "riviera-homes-2", second.Agency.Slug)

	assert.Equal(t, []events.EventType{
		events.EventAgencyCreated, events.EventUserRegistered,
		events.EventAgencyCreated, events.EventUserRegistered,
	}, f.recorded.types())
}

func TestAuthService_RegisterUserOnly(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)

	res, err := svc.Register(context.Background(), RegisterInput{Email: "jane@example.com", Password: "secret1", AccountType: "user_only"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAgent, res.User.Role)
	assert.Nil(t, res.User.AgencyID)
	assert.Nil(t, res.Agency)
	assert.Equal(t, "jane", res.User.Name)
}

func TestAuthService_RegisterRejects(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "secret1", AccountType: "USER_ONLY"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Email: "JANE@example.com", Password: "secret1", AccountType: "USER_ONLY"})
	requireStatus(t, err, http.StatusConflict)

	_, err = svc.Register(ctx, RegisterInput{Email: "no-at", Password: "secret1"})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "short"})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "secret1", AccountType: "ADMIN"})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.Register(ctx, RegisterInput{Email: "a@b.c", Password: "secret1", City: "Nice", Country: "FR"})
	requireStatus(t, err, http.StatusBadRequest)
}

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	reg, err := svc.Register(ctx, RegisterInput{Email: "boss@example.com", Password: "secret1", AgencyName: "Riviera", City: "Nice", Country: "FR"})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	res, err := svc.Login(ctx, "BOSS@example.com", "secret1")
	require.NoError(t, err)
	require.NotNil(t, res.User.LastLoginAt)
	assert.Equal(t, f.clock.Now().UTC(), *res.User.LastLoginAt)
	require.NotNil(t, res.Agency)
	assert.Equal(t, "Riviera", res.Agency.Name)

	stored, err := f.store.Users().GetByID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLoginAt)

	_, err = svc.Login(ctx, "", "secret1")
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.Login(ctx, "boss@example.com", "wrong-password")
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = svc.Login(ctx, "ghost@example.com", "secret1")
	requireStatus(t, err, http.StatusUnauthorized)

	f.store.SetUserActive(reg.User.ID, false)
	_, err = svc.Login(ctx, "boss@example.com", "secret1")
	requireStatus(t, err, http.StatusForbidden)
}

func TestAuthService_LogoutRevokesSession(t *testing.T) {
	f := newFixture(t)
	svc := newAuthService(f)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "secret1", AccountType: "USER_ONLY"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Session))
	revoked, err := f.store.Sessions().IsRevoked(ctx, res.Session.ID)
	require.NoError(t, err)
	assert.True(t, revoked)

	assert.NoError(t, svc.Logout(ctx, domain.Session{}))
}

type unavailableSessions struct {
	repository.SessionRepository
}

func (unavailableSessions) Revoke(context.Context, string, time.Time) error {
	return errors.New("redis: connection refused")
}

func TestAuthService_LogoutToleratesRevocationFailure(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zap.WarnLevel)
	svc := newAuthService(f)
	svc.sessions = unavailableSessions{f.store.Sessions()}
	svc.logger = zap.New(core)
	ctx := context.Background()

	res, err := svc.Register(ctx, RegisterInput{Email: "jane@example.com", Password: "secret1", AccountType: "USER_ONLY"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, res.Session))
	require.Equal(t, 1, logs.FilterMessage("failed to revoke session").Len())
}
