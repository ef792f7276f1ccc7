package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/cache"
	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/repository"
	"github.com/spec-kit/agency-listings/internal/storage"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

// ListingService coordinates scoped listing workflows.
type ListingService struct {
	listings   repository.ListingRepository
	agencies   repository.AgencyRepository
	blobs      storage.BlobStore
	urls       storage.URLMapper
	gallery    cache.Gallery
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// ListingDependencies bundles collaborators for the listing service.
type ListingDependencies struct {
	ListingRepo repository.ListingRepository
	AgencyRepo  repository.AgencyRepository
	BlobStore   storage.BlobStore
	URLMapper   storage.URLMapper
	Gallery     cache.Gallery
	Dispatcher  events.Dispatcher
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

// ListingPage is one page of listings plus the unpaged total.
type ListingPage struct {
	Listings []domain.Listing
	Total    int
}

// NewListingService builds the service.
func NewListingService(deps ListingDependencies) *ListingService {
	s := &ListingService{
		listings:   deps.ListingRepo,
		agencies:   deps.AgencyRepo,
		blobs:      deps.BlobStore,
		urls:       deps.URLMapper,
		gallery:    deps.Gallery,
		dispatcher: deps.Dispatcher,
		clock:      deps.Clock,
		logger:     deps.Logger,
	}
	if s.gallery == nil {
		s.gallery = cache.Noop{}
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// List returns the listings visible to actor that match the query.
func (s *ListingService) List(ctx context.Context, actor *domain.User, q ListingQuery) (*ListingPage, error) {
	filter, err := s.scopedFilter(actor, q)
	if err != nil {
		return nil, err
	}
	if filter == nil {
		return &ListingPage{Listings: []domain.Listing{}}, nil
	}

	load := func(ctx context.Context) (cache.Page, error) {
		items, total, err := s.listings.List(ctx, *filter)
		if err != nil {
			return cache.Page{}, err
		}
		return cache.Page{Listings: items, Total: total}, nil
	}

	var page cache.Page
	if isPublic(actor) {
		page, err = s.gallery.GetOrLoad(ctx, *filter, load)
	} else {
		page, err = load(ctx)
	}
	if err != nil {
		return nil, err
	}
	if page.Listings == nil {
		page.Listings = []domain.Listing{}
	}
	return &ListingPage{Listings: page.Listings, Total: page.Total}, nil
}

// scopedFilter turns the query into a repository filter restricted to what
// actor may see. A nil filter means the query can match nothing.
func (s *ListingService) scopedFilter(actor *domain.User, q ListingQuery) (*repository.ListingFilter, error) {
	filter := &repository.ListingFilter{
		SearchTerm: trimmedPtr(&q.SearchTerm),
		City:       trimmedPtr(&q.City),
		Type:       trimmedPtr(&q.Type),
		MinPrice:   q.MinPrice,
		MaxPrice:   q.MaxPrice,
		Limit:      q.Limit,
		Offset:     q.Offset,
		Sort:       domain.ListingSortDateDesc,
	}
	filter.Limit, filter.Offset = filter.NormalizedPage()

	if raw := strings.TrimSpace(q.Sort); raw != "" {
		sort := domain.ListingSort(strings.ToUpper(raw))
		if !sort.Valid() {
			return nil, fieldError("sort", "sort must be one of DATE_DESC, PRICE_ASC, PRICE_DESC")
		}
		filter.Sort = sort
	}

	var status domain.ListingStatus
	if raw := strings.TrimSpace(q.Status); raw != "" {
		var err error
		if status, err = NormalizeStatus(raw); err != nil {
			return nil, err
		}
		filter.Statuses = []domain.ListingStatus{status}
	}

	var agencyID *string
	if raw := strings.TrimSpace(q.AgencyID); raw != "" {
		id, err := parseID(raw, "agency")
		if err != nil {
			return nil, err
		}
		agencyID = &id
	}

	switch {
	case actor.IsSuperAdmin():
		filter.AgencyID = agencyID
	case isStaff(actor):
		if agencyID != nil && !actor.BelongsTo(*agencyID) {
			return nil, nil
		}
		own := *actor.AgencyID
		filter.AgencyID = &own
	default:
		if status != "" && status != domain.ListingStatusActive {
			return nil, nil
		}
		filter.AgencyID = agencyID
		filter.Statuses = []domain.ListingStatus{domain.ListingStatusActive}
		filter.ActiveAgenciesOnly = true
	}
	return filter, nil
}

// Get returns one listing if actor may see it. Invisible listings are reported as missing.
func (s *ListingService) Get(ctx context.Context, actor *domain.User, rawID string) (*domain.Listing, error) {
	id, err := parseID(rawID, "listing")
	if err != nil {
		return nil, err
	}
	listing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("listing", nil)
		}
		return nil, err
	}
	if !canViewListing(actor, listing) {
		return nil, apperrors.NewNotFound("listing", nil)
	}
	return listing, nil
}

// Create validates and stores a listing for the actor's agency.
func (s *ListingService) Create(ctx context.Context, actor *domain.User, in ListingInput) (*domain.Listing, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.HasAgency() {
		return nil, apperrors.NewForbidden("user has no associated agency")
	}

	listing, err := in.toListing()
	if err != nil {
		return nil, err
	}
	if listing.AgencyID, err = s.targetAgency(ctx, actor, in.AgencyID, ""); err != nil {
		return nil, err
	}
	listing.Images = domain.ImagesFromURLs("", CleanImageURLs(in.ImageURLs))

	if err := s.listings.Create(ctx, listing); err != nil {
		return nil, err
	}
	saved, err := s.listings.GetByID(ctx, listing.ID)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.EventListingCreated, actor, saved)
	return saved, nil
}

// Update fully replaces a listing's fields. Images are replaced only when
// the input carries an image list.
func (s *ListingService) Update(ctx context.Context, actor *domain.User, rawID string, in ListingInput) (*domain.Listing, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	existing, err := s.manageable(ctx, actor, rawID)
	if err != nil {
		return nil, err
	}

	listing, err := in.toListing()
	if err != nil {
		return nil, err
	}
	listing.ID = existing.ID
	if listing.AgencyID, err = s.targetAgency(ctx, actor, in.AgencyID, existing.AgencyID); err != nil {
		return nil, err
	}

	replaceImages := in.ImageURLs != nil
	if replaceImages {
		listing.Images = domain.ImagesFromURLs(listing.ID, CleanImageURLs(in.ImageURLs))
	}
	if err := s.listings.Update(ctx, listing, replaceImages); err != nil {
		return nil, err
	}
	saved, err := s.listings.GetByID(ctx, listing.ID)
	if err != nil {
		return nil, err
	}

	s.afterWrite(ctx, events.EventListingUpdated, actor, saved)
	return saved, nil
}

// Delete removes the listing and its images, then drops the stored blobs.
func (s *ListingService) Delete(ctx context.Context, actor *domain.User, rawID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	existing, err := s.manageable(ctx, actor, rawID)
	if err != nil {
		return err
	}
	if err := s.listings.Delete(ctx, existing.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("listing", nil)
		}
		return err
	}

	s.deleteBlobs(ctx, existing.Images)
	s.afterWrite(ctx, events.EventListingDeleted, actor, existing)
	return nil
}

// manageable loads a listing the actor may modify. Plain users get 403
// before the lookup so they cannot probe ids.
func (s *ListingService) manageable(ctx context.Context, actor *domain.User, rawID string) (*domain.Listing, error) {
	if !actor.IsSuperAdmin() && !actor.HasAgency() {
		return nil, apperrors.NewForbidden("user has no associated agency")
	}
	id, err := parseID(rawID, "listing")
	if err != nil {
		return nil, err
	}
	existing, err := s.listings.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("listing", nil)
		}
		return nil, err
	}
	if !canManageListing(actor, existing) {
		return nil, apperrors.NewForbidden("listing belongs to another agency")
	}
	return existing, nil
}

// targetAgency picks the owning agency for a write. Staff are pinned to
// their own agency. Super admins may name any existing agency; otherwise
// current (on update) or their own agency is used.
func (s *ListingService) targetAgency(ctx context.Context, actor *domain.User, requested *string, current string) (string, error) {
	if !actor.IsSuperAdmin() {
		return *actor.AgencyID, nil
	}
	if req := trimmedPtr(requested); req != nil {
		id, err := parseID(*req, "agency")
		if err != nil {
			return "", err
		}
		if _, err := s.agencies.GetByID(ctx, id); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return "", fieldError("agencyId", "agency does not exist")
			}
			return "", err
		}
		return id, nil
	}
	if current != "" {
		return current, nil
	}
	if actor.HasAgency() {
		return *actor.AgencyID, nil
	}
	return "", fieldError("agencyId", "agencyId is required")
}

func (s *ListingService) afterWrite(ctx context.Context, eventType events.EventType, actor *domain.User, l *domain.Listing) {
	if err := s.gallery.Invalidate(ctx); err != nil {
		s.logger.Warn("gallery cache invalidation failed", zap.Error(err))
	}
	if s.dispatcher == nil {
		return
	}
	agencyID := l.AgencyID
	event := events.NewEvent(eventType, l.ID, &agencyID, events.ActorFor(actor), s.clock.Now(), events.NewListingPayload(l))
	_ = s.dispatcher.Publish(ctx, event)
}

// deleteBlobs removes stored objects behind image URLs this service issued.
// Foreign URLs are left alone and failures are only logged.
func (s *ListingService) deleteBlobs(ctx context.Context, images []domain.ListingImage) {
	if s.blobs == nil {
		return
	}
	for _, img := range images {
		path, ok := s.urls.PathFromURL(img.URL)
		if !ok {
			continue
		}
		if err := s.blobs.Delete(ctx, path); err != nil && !errors.Is(err, storage.ErrNotFound) {
			s.logger.Warn("failed to delete listing image blob", zap.String("path", path), zap.Error(err))
		}
	}
}
