package handlers

import (
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/agency-listings/internal/api/dto"
	"github.com/spec-kit/agency-listings/internal/auth"
	"github.com/spec-kit/agency-listings/internal/service"
	"github.com/spec-kit/agency-listings/internal/storage"
	apperrors "github.com/spec-kit/agency-listings/pkg/util"
)

const uploadFormField = "files"

// UploadsHandler stores listing images and serves stored files.
type UploadsHandler struct {
	service *service.UploadService
}

// NewUploadsHandler constructs handler.
func NewUploadsHandler(uploadService *service.UploadService) *UploadsHandler {
	return &UploadsHandler{service: uploadService}
}

// UploadListingImages POST /uploads/listing-images.
func (h *UploadsHandler) UploadListingImages(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return apperrors.NewValidationError("no files uploaded", map[string]any{"field": uploadFormField})
	}
	headers := form.File[uploadFormField]
	files := make([]service.UploadFile, 0, len(headers))
	for _, fh := range headers {
		files = append(files, uploadFile(fh))
	}

	urls, err := h.service.UploadListingImages(c.UserContext(), auth.UserFromContext(c), files)
	if err != nil {
		return err
	}
	return c.JSON(dto.UploadResponse{URLs: urls})
}

// ServeFile GET /files/*.
func (h *UploadsHandler) ServeFile(c *fiber.Ctx) error {
	path, err := storage.UnescapePath(c.Params("*"))
	if err != nil {
		return apperrors.NewNotFound("file", nil)
	}
	body, obj, err := h.service.Open(c.UserContext(), path)
	if err != nil {
		return err
	}
	if obj.ContentType != "" {
		c.Set(fiber.HeaderContentType, obj.ContentType)
	}
	// Stored paths embed an upload timestamp and never change content.
	c.Set(fiber.HeaderCacheControl, "public, max-age=31536000, immutable")
	size := int(obj.Size)
	if size <= 0 {
		size = -1
	}
	return c.SendStream(body, size)
}

func uploadFile(fh *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}
