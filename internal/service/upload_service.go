package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/storage"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

const defaultImageContentType = "image/jpeg"

var whitespaceRun = regexp.MustCompile(`\s+`)

// UploadFile is one file from a multipart upload.
type UploadFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// UploadService stores listing images in the blob store.
type UploadService struct {
	blobs        storage.BlobStore
	urls         storage.URLMapper
	clock        clockwork.Clock
	logger       *zap.Logger
	maxFileBytes int64
	maxFiles     int
	pathPrefix   string
}

// UploadDependencies bundles collaborators for the upload service.
type UploadDependencies struct {
	BlobStore storage.BlobStore
	URLMapper storage.URLMapper
	Clock     clockwork.Clock
	Logger    *zap.Logger
}

// NewUploadService builds the service.
func NewUploadService(cfg config.UploadConfig, deps UploadDependencies) *UploadService {
	s := &UploadService{
		blobs:        deps.BlobStore,
		urls:         deps.URLMapper,
		clock:        deps.Clock,
		logger:       deps.Logger,
		maxFileBytes: cfg.MaxFileBytes,
		maxFiles:     cfg.MaxFiles,
		pathPrefix:   strings.Trim(cfg.PathPrefix, "/"),
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.pathPrefix == "" {
		s.pathPrefix = "listings"
	}
	return s
}

// SafeName lowercases a client file name and replaces whitespace runs with "-".
// Directory components are dropped.
func SafeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	name = whitespaceRun.ReplaceAllString(strings.TrimSpace(strings.ToLower(name)), "-")
	name = strings.Trim(name, ".")
	if name == "" {
		return "file"
	}
	return name
}

// UploadListingImages validates every file first, then stores them and
// returns their public URLs in input order.
func (s *UploadService) UploadListingImages(ctx context.Context, actor *domain.User, files []UploadFile) ([]string, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.HasAgency() {
		return nil, apperrors.NewForbidden("user has no associated agency")
	}
	if len(files) == 0 {
		return nil, fieldError("files", "no files uploaded")
	}
	if s.maxFiles > 0 && len(files) > s.maxFiles {
		return nil, fieldError("files", fmt.Sprintf("at most %d files per upload", s.maxFiles))
	}

	for i := range files {
		ct := strings.TrimSpace(files[i].ContentType)
		if ct == "" {
			ct = defaultImageContentType
		}
		if !strings.HasPrefix(strings.ToLower(ct), "image/") {
			return nil, apperrors.NewValidationError("only image uploads are allowed", map[string]any{"file": files[i].Name, "contentType": ct})
		}
		files[i].ContentType = ct
		if s.maxFileBytes > 0 && files[i].Size > s.maxFileBytes {
			return nil, apperrors.NewPayloadTooLarge(fmt.Sprintf("file %q exceeds %d bytes", files[i].Name, s.maxFileBytes))
		}
	}

	stamp := s.clock.Now().UnixMilli()
	stored := make([]string, 0, len(files))
	urls := make([]string, 0, len(files))
	for i, f := range files {
		path := fmt.Sprintf("%s/%d-%d-%s", s.pathPrefix, stamp, i, SafeName(f.Name))
		if err := s.store(ctx, path, f); err != nil {
			s.rollback(ctx, stored)
			return nil, apperrors.NewInternalError(fmt.Errorf("store %s: %w", path, err))
		}
		stored = append(stored, path)
		urls = append(urls, s.urls.PublicURL(path))
	}
	return urls, nil
}

func (s *UploadService) store(ctx context.Context, path string, f UploadFile) error {
	body, err := f.Open()
	if err != nil {
		return err
	}
	defer body.Close()

	var reader io.Reader = body
	if s.maxFileBytes > 0 {
		reader = io.LimitReader(body, s.maxFileBytes)
	}
	return s.blobs.Put(ctx, path, f.ContentType, reader)
}

func (s *UploadService) rollback(ctx context.Context, paths []string) {
	for _, p := range paths {
		if err := s.blobs.Delete(ctx, p); err != nil {
			s.logger.Warn("failed to roll back uploaded blob", zap.String("path", p), zap.Error(err))
		}
	}
}

// Open streams a stored object for GET /files/*.
func (s *UploadService) Open(ctx context.Context, path string) (io.ReadCloser, storage.Object, error) {
	path = strings.TrimLeft(path, "/")
	if path == "" || strings.Contains(path, "..") {
		return nil, storage.Object{}, apperrors.NewNotFound("file", nil)
	}
	body, obj, err := s.blobs.Open(ctx, path)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, storage.Object{}, apperrors.NewNotFound("file", nil)
		}
		return nil, storage.Object{}, err
	}
	return body, obj, nil
}

// Ping reports blob store health.
func (s *UploadService) Ping(ctx context.Context) error {
	return s.blobs.Ping(ctx)
}
