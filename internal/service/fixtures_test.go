package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/repository/repositorytest"
	"github.com/spec-kit/agency-listings/internal/storage"
	"github.com/spec-kit/agency-listings/internal/storage/storagetest"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

const testBaseURL = "https://api.example.com"

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []events.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	store    *repositorytest.Store
	blobs    *storagetest.MemoryStore
	clock    *clockwork.FakeClock
	recorded *recorder
	listings *ListingService
	agencies *AgencyService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:    repositorytest.NewStore(),
		blobs:    storagetest.NewMemoryStore(),
		clock:    clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)),
		recorded: &recorder{},
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, et := range events.AllEventTypes() {
		dispatcher.Subscribe(et, f.recorded.handle)
	}
	urls := storage.URLMapper{BaseURL: testBaseURL}

	f.listings = NewListingService(ListingDependencies{
		ListingRepo: f.store.Listings(),
		AgencyRepo:  f.store.Agencies(),
		BlobStore:   f.blobs,
		URLMapper:   urls,
		Dispatcher:  dispatcher,
		Clock:       f.clock,
	})
	f.agencies = NewAgencyService(AgencyDependencies{
		AgencyRepo:  f.store.Agencies(),
		ListingRepo: f.store.Listings(),
		BlobStore:   f.blobs,
		URLMapper:   urls,
		Dispatcher:  dispatcher,
		Clock:       f.clock,
	})
	return f
}

func (f *fixture) agency(t *testing.T, name string, active bool) *domain.Agency {
	t.Helper()
	a := &domain.Agency{Name: name, Slug: name, City: "Nice", Country: "FR", Plan: domain.AgencyPlanFree, IsActive: active}
	require.NoError(t, f.store.Agencies().Create(context.Background(), a))
	return a
}

func (f *fixture) user(t *testing.T, email string, role domain.Role, agency *domain.Agency) *domain.User {
	t.Helper()
	u := &domain.User{Email: email, Name: email, PasswordHash: "x", Role: role, IsActive: true}
	if agency != nil {
		id := agency.ID
		u.AgencyID = &id
	}
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func (f *fixture) listing(t *testing.T, agency *domain.Agency, title string, status domain.ListingStatus, price float64, urls ...string) *domain.Listing {
	t.Helper()
	l := &domain.Listing{
		Title: title, City: "Nice", Country: "FR", Price: price, Currency: "EUR",
		Status: status, Type: "apartment", AgencyID: agency.ID,
		Images: domain.ImagesFromURLs("", urls),
	}
	require.NoError(t, f.store.Listings().Create(context.Background(), l))
	return l
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, apperrors.ToDomainError(err).HTTPStatus, "error: %v", err)
}

func strPtr(s string) *string { return &s }

func listingIDs(ls []domain.Listing) []string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.ID)
	}
	return out
}
