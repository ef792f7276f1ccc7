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

// AgencyService manages agencies under tenant scoping.
type AgencyService struct {
	agencies   repository.AgencyRepository
	listings   repository.ListingRepository
	blobs      storage.BlobStore
	urls       storage.URLMapper
	gallery    cache.Gallery
	dispatcher events.Dispatcher
	clock      clockwork.Clock
	logger     *zap.Logger
}

// AgencyDependencies bundles collaborators for the agency service.
type AgencyDependencies struct {
	AgencyRepo  repository.AgencyRepository
	ListingRepo repository.ListingRepository
	BlobStore   storage.BlobStore
	URLMapper   storage.URLMapper
	Gallery     cache.Gallery
	Dispatcher  events.Dispatcher
	Clock       clockwork.Clock
	Logger      *zap.Logger
}

// AgencyCreateInput describes a new agency.
type AgencyCreateInput struct {
	Name    string
	City    string
	Country string
	Email   *string
	Phone   *string
	Plan    string
}

// AgencyPatch carries optional changes; empty strings are ignored.
type AgencyPatch struct {
	Name     *string
	City     *string
	Country  *string
	Email    *string
	Phone    *string
	Plan     *string
	IsActive *bool
}

// NewAgencyService builds the service.
func NewAgencyService(deps AgencyDependencies) *AgencyService {
	s := &AgencyService{
		agencies:   deps.AgencyRepo,
		listings:   deps.ListingRepo,
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

// List returns every agency for super admins, the caller's own agency for
// staff and nothing for plain users.
func (s *AgencyService) List(ctx context.Context, actor *domain.User) ([]domain.Agency, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.IsSuperAdmin() {
		return s.agencies.List(ctx)
	}
	if !actor.HasAgency() {
		return []domain.Agency{}, nil
	}
	agency, err := s.agencies.GetByID(ctx, *actor.AgencyID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return []domain.Agency{}, nil
		}
		return nil, err
	}
	return []domain.Agency{*agency}, nil
}

// Get returns one agency. Agencies outside the actor's scope read as missing.
func (s *AgencyService) Get(ctx context.Context, actor *domain.User, rawID string) (*domain.Agency, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "agency")
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.BelongsTo(id) {
		return nil, apperrors.NewNotFound("agency", nil)
	}
	agency, err := s.agencies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, err
	}
	return agency, nil
}

// Create adds an agency. Super admins only.
func (s *AgencyService) Create(ctx context.Context, actor *domain.User, in AgencyCreateInput) (*domain.Agency, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		return nil, apperrors.NewForbidden("only super admins can create agencies")
	}

	agency := &domain.Agency{
		Name:     strings.TrimSpace(in.Name),
		City:     strings.TrimSpace(in.City),
		Country:  strings.TrimSpace(in.Country),
		Email:    trimmedPtr(in.Email),
		Phone:    trimmedPtr(in.Phone),
		Plan:     domain.AgencyPlanFree,
		IsActive: true,
	}
	switch {
	case agency.Name == "":
		return nil, fieldError("name", "name is required")
	case agency.City == "":
		return nil, fieldError("city", "city is required")
	case agency.Country == "":
		return nil, fieldError("country", "country is required")
	}
	if raw := strings.TrimSpace(in.Plan); raw != "" {
		plan, err := parsePlan(raw)
		if err != nil {
			return nil, err
		}
		agency.Plan = plan
	}

	slug, err := uniqueAgencySlug(ctx, s.agencies, agency.Name)
	if err != nil {
		return nil, err
	}
	agency.Slug = slug

	if err := s.agencies.Create(ctx, agency); err != nil {
		return nil, err
	}
	s.publish(ctx, events.EventAgencyCreated, actor, agency)
	return agency, nil
}

// Update applies a partial change. Agency admins may edit their own agency
// but not its plan or active flag. The slug never changes.
func (s *AgencyService) Update(ctx context.Context, actor *domain.User, rawID string, patch AgencyPatch) (*domain.Agency, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	id, err := parseID(rawID, "agency")
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() {
		if actor.Role != domain.RoleAgencyAdmin || !actor.BelongsTo(id) {
			return nil, apperrors.NewForbidden("not allowed to update this agency")
		}
		if trimmedPtr(patch.Plan) != nil || patch.IsActive != nil {
			return nil, apperrors.NewForbidden("only super admins can change plan or active status")
		}
	}

	agency, err := s.agencies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, err
	}

	if v := trimmedPtr(patch.Name); v != nil {
		agency.Name = *v
	}
	if v := trimmedPtr(patch.City); v != nil {
		agency.City = *v
	}
	if v := trimmedPtr(patch.Country); v != nil {
		agency.Country = *v
	}
	if v := trimmedPtr(patch.Email); v != nil {
		agency.Email = v
	}
	if v := trimmedPtr(patch.Phone); v != nil {
		agency.Phone = v
	}
	if v := trimmedPtr(patch.Plan); v != nil {
		plan, err := parsePlan(*v)
		if err != nil {
			return nil, err
		}
		agency.Plan = plan
	}
	if patch.IsActive != nil {
		agency.IsActive = *patch.IsActive
	}

	if err := s.agencies.Update(ctx, agency); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("agency", nil)
		}
		return nil, err
	}
	s.publish(ctx, events.EventAgencyUpdated, actor, agency)
	return agency, nil
}

// Delete removes an agency; its listings and images go with it. Super admins only.
func (s *AgencyService) Delete(ctx context.Context, actor *domain.User, rawID string) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	if !actor.IsSuperAdmin() {
		return apperrors.NewForbidden("only super admins can delete agencies")
	}
	id, err := parseID(rawID, "agency")
	if err != nil {
		return err
	}
	agency, err := s.agencies.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agency", nil)
		}
		return err
	}

	images := s.collectImages(ctx, id)
	if err := s.agencies.Delete(ctx, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("agency", nil)
		}
		return err
	}
	s.deleteBlobs(ctx, images)
	s.publish(ctx, events.EventAgencyDeleted, actor, agency)
	return nil
}

// collectImages gathers the images of every listing of the agency so their
// blobs can be removed once the rows are gone.
func (s *AgencyService) collectImages(ctx context.Context, agencyID string) []domain.ListingImage {
	if s.listings == nil || s.blobs == nil {
		return nil
	}
	var images []domain.ListingImage
	filter := repository.ListingFilter{AgencyID: &agencyID, Limit: repository.MaxListingPageSize}
	for {
		page, total, err := s.listings.List(ctx, filter)
		if err != nil {
			s.logger.Warn("failed to collect agency images", zap.String("agency_id", agencyID), zap.Error(err))
			return images
		}
		for _, l := range page {
			images = append(images, l.Images...)
		}
		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			return images
		}
	}
}

func (s *AgencyService) deleteBlobs(ctx context.Context, images []domain.ListingImage) {
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

func (s *AgencyService) publish(ctx context.Context, eventType events.EventType, actor *domain.User, agency *domain.Agency) {
	if err := s.gallery.Invalidate(ctx); err != nil {
		s.logger.Warn("gallery cache invalidation failed", zap.Error(err))
	}
	if s.dispatcher == nil {
		return
	}
	id := agency.ID
	event := events.NewEvent(eventType, agency.ID, &id, events.ActorFor(actor), s.clock.Now(), events.NewAgencyPayload(agency))
	_ = s.dispatcher.Publish(ctx, event)
}

func parsePlan(raw string) (domain.AgencyPlan, error) {
	plan := domain.AgencyPlan(strings.ToUpper(strings.TrimSpace(raw)))
	if !plan.Valid() {
		return "", fieldError("plan", "plan must be one of FREE, PRO, PREMIUM")
	}
	return plan, nil
}
