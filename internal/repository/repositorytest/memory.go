// Package repositorytest provides in-memory repositories for service and handler tests.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/repository"
)

// Store holds every table in memory and hands out repository views over it.
type Store struct {
	mu       sync.Mutex
	now      time.Time
	agencies map[string]domain.Agency
	users    map[string]domain.User
	listings map[string]domain.Listing
	revoked  map[string]time.Time
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		agencies: map[string]domain.Agency{},
		users:    map[string]domain.User{},
		listings: map[string]domain.Listing{},
		revoked:  map[string]time.Time{},
	}
}

// tick returns a strictly increasing timestamp so created_at ordering is deterministic.
func (s *Store) tick() time.Time {
	s.now = s.now.Add(time.Second)
	return s.now
}

func uniqueViolation(constraint string) error {
	return &pgconn.PgError{Code: "23505", ConstraintName: constraint}
}

func fkViolation(constraint string) error {
	return &pgconn.PgError{Code: "23503", ConstraintName: constraint}
}

// Agencies returns an AgencyRepository view.
func (s *Store) Agencies() repository.AgencyRepository { return agencyRepo{s} }

// Users returns a UserRepository view.
func (s *Store) Users() repository.UserRepository { return userRepo{s} }

// Listings returns a ListingRepository view.
func (s *Store) Listings() repository.ListingRepository { return listingRepo{s} }

// Sessions returns a SessionRepository view.
func (s *Store) Sessions() repository.SessionRepository { return sessionRepo{s} }

// ListingCount reports how many listings are stored.
func (s *Store) ListingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listings)
}

// ImageCount reports how many image rows are stored across all listings.
func (s *Store) ImageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.listings {
		n += len(l.Images)
	}
	return n
}

// SetUserActive flips the is_active flag of a user.
func (s *Store) SetUserActive(id string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		u.IsActive = active
		s.users[id] = u
	}
}

// --- agencies ---

type agencyRepo struct{ s *Store }

func (r agencyRepo) Create(_ context.Context, agency *domain.Agency) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertAgency(agency)
}

func (s *Store) insertAgency(agency *domain.Agency) error {
	for _, a := range s.agencies {
		if a.Slug == agency.Slug {
			return uniqueViolation("agencies_slug_key")
		}
	}
	if agency.Plan == "" {
		agency.Plan = domain.AgencyPlanFree
	}
	agency.ID = uuid.NewString()
	agency.CreatedAt = s.tick()
	agency.UpdatedAt = agency.CreatedAt
	s.agencies[agency.ID] = *agency
	return nil
}

func (r agencyRepo) Update(_ context.Context, agency *domain.Agency) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.agencies[agency.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	agency.Slug = current.Slug
	agency.CreatedAt = current.CreatedAt
	agency.UpdatedAt = r.s.tick()
	r.s.agencies[agency.ID] = *agency
	return nil
}

func (r agencyRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.agencies[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.agencies, id)
	for lid, l := range r.s.listings {
		if l.AgencyID == id {
			delete(r.s.listings, lid)
		}
	}
	for uid, u := range r.s.users {
		if u.AgencyID != nil && *u.AgencyID == id {
			u.AgencyID = nil
			r.s.users[uid] = u
		}
	}
	return nil
}

func (r agencyRepo) GetByID(_ context.Context, id string) (*domain.Agency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.agencies[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &a, nil
}

func (r agencyRepo) List(_ context.Context) ([]domain.Agency, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	result := make([]domain.Agency, 0, len(r.s.agencies))
	for _, a := range r.s.agencies {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r agencyRepo) SlugExists(_ context.Context, slug string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.agencies {
		if a.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// --- users ---

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertUser(user)
}

func (s *Store) insertUser(user *domain.User) error {
	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return uniqueViolation("users_email_key")
		}
	}
	if user.AgencyID != nil {
		if _, ok := s.agencies[*user.AgencyID]; !ok {
			return fkViolation("users_agency_id_fkey")
		}
	}
	user.ID = uuid.NewString()
	user.CreatedAt = s.tick()
	user.UpdatedAt = user.CreatedAt
	stored := *user
	stored.Agency = nil
	s.users[user.ID] = stored
	return nil
}

func (r userRepo) CreateWithAgency(_ context.Context, agency *domain.Agency, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.insertAgency(agency); err != nil {
		return err
	}
	user.AgencyID = &agency.ID
	if err := r.s.insertUser(user); err != nil {
		delete(r.s.agencies, agency.ID)
		return err
	}
	user.Agency = agency
	return nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.s.withAgency(u), nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return r.s.withAgency(u), nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *Store) withAgency(u domain.User) *domain.User {
	if u.AgencyID != nil {
		if a, ok := s.agencies[*u.AgencyID]; ok {
			u.Agency = &a
		}
	}
	return &u
}

func (r userRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.LastLoginAt = &at
	r.s.users[id] = u
	return nil
}

func (r userRepo) Count(_ context.Context) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.users), nil
}

// --- listings ---

type listingRepo struct{ s *Store }

func (r listingRepo) Create(_ context.Context, listing *domain.Listing) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.agencies[listing.AgencyID]; !ok {
		return fkViolation("listings_agency_id_fkey")
	}
	listing.ID = uuid.NewString()
	listing.CreatedAt = r.s.tick()
	listing.UpdatedAt = listing.CreatedAt
	listing.Images = r.s.stampImages(listing.ID, listing.Images)
	r.s.storeListing(*listing)
	return nil
}

func (r listingRepo) Update(_ context.Context, listing *domain.Listing, replaceImages bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	current, ok := r.s.listings[listing.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	if _, ok := r.s.agencies[listing.AgencyID]; !ok {
		return fkViolation("listings_agency_id_fkey")
	}
	if replaceImages {
		listing.Images = r.s.stampImages(listing.ID, listing.Images)
	} else {
		listing.Images = current.Images
	}
	listing.CreatedAt = current.CreatedAt
	listing.UpdatedAt = r.s.tick()
	r.s.storeListing(*listing)
	return nil
}

func (s *Store) stampImages(listingID string, images []domain.ListingImage) []domain.ListingImage {
	out := make([]domain.ListingImage, len(images))
	for i, img := range images {
		img.ID = uuid.NewString()
		img.ListingID = listingID
		img.CreatedAt = s.now
		out[i] = img
	}
	return out
}

func (s *Store) storeListing(l domain.Listing) {
	l.Agency = nil
	s.listings[l.ID] = l
}

func (r listingRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.listings[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.s.listings, id)
	return nil
}

func (r listingRepo) GetByID(_ context.Context, id string) (*domain.Listing, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.listings[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return r.s.hydrate(l), nil
}

func (s *Store) hydrate(l domain.Listing) *domain.Listing {
	if a, ok := s.agencies[l.AgencyID]; ok {
		l.Agency = &a
	}
	l.Images = append([]domain.ListingImage{}, l.Images...)
	sort.SliceStable(l.Images, func(i, j int) bool { return l.Images[i].Position < l.Images[j].Position })
	return &l
}

func (r listingRepo) List(_ context.Context, filter repository.ListingFilter) ([]domain.Listing, int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	matched := []domain.Listing{}
	for _, l := range r.s.listings {
		full := r.s.hydrate(l)
		if matches(full, filter) {
			matched = append(matched, *full)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		switch filter.Sort {
		case domain.ListingSortPriceAsc:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		case domain.ListingSortPriceDesc:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	total := len(matched)
	limit, offset := filter.NormalizedPage()
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func matches(l *domain.Listing, f repository.ListingFilter) bool {
	if f.AgencyID != nil && l.AgencyID != *f.AgencyID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if l.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ActiveAgenciesOnly && (l.Agency == nil || !l.Agency.IsActive) {
		return false
	}
	if f.City != nil && strings.TrimSpace(*f.City) != "" && !strings.EqualFold(l.City, strings.TrimSpace(*f.City)) {
		return false
	}
	if f.Type != nil && strings.TrimSpace(*f.Type) != "" && !strings.EqualFold(l.Type, strings.TrimSpace(*f.Type)) {
		return false
	}
	if f.MinPrice != nil && l.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && l.Price > *f.MaxPrice {
		return false
	}
	if f.SearchTerm != nil && strings.TrimSpace(*f.SearchTerm) != "" {
		term := strings.ToLower(strings.TrimSpace(*f.SearchTerm))
		desc := ""
		if l.Description != nil {
			desc = *l.Description
		}
		if !strings.Contains(strings.ToLower(l.Title), term) &&
			!strings.Contains(strings.ToLower(desc), term) &&
			!strings.Contains(strings.ToLower(l.City), term) {
			return false
		}
	}
	return true
}

// --- sessions ---

type sessionRepo struct{ s *Store }

func (r sessionRepo) Revoke(_ context.Context, sessionID string, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.revoked[sessionID] = expiresAt
	return nil
}

func (r sessionRepo) IsRevoked(_ context.Context, sessionID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.revoked[sessionID]
	return ok, nil
}
