package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/agency-listings/internal/config"
	"github.com/spec-kit/agency-listings/internal/domain"
	"github.com/spec-kit/agency-listings/internal/storage"
)

func newUploadService(f *fixture) *UploadService {
	return NewUploadService(config.UploadConfig{MaxFileBytes: 1024, MaxFiles: 3, PathPrefix: "listings"}, UploadDependencies{
		BlobStore: f.blobs,
		URLMapper: storage.URLMapper{BaseURL: testBaseURL},
		Clock:     f.clock,
	})
}

func file(name, contentType string, data string) UploadFile {
	return UploadFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(data))), nil
		},
	}
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "my-beach---house.jpg", SafeName("My Beach - House.JPG"))
	assert.Equal(t, "photo.png", SafeName(`C:\Users\me\photo.png`))
	assert.Equal(t, "file", SafeName("   "))
}

func TestUploadService_StoresFiles(t *testing.T) {
	f := newFixture(t)
	svc := newUploadService(f)
	agent := f.user(t, "agent@a.fr", domain.RoleAgent, f.agency(t, "a", true))
	ms := f.clock.Now().UnixMilli()

	urls, err := svc.UploadListingImages(context.Background(), agent, []UploadFile{
		file("Front View.jpg", "image/jpeg", "jpeg"),
		file("plan.png", "", "png"),
	})
	require.NoError(t, err)
	require.Len(t, urls, 2)
	assert.Equal(t, testBaseURL+"/files/listings/"+itoa(ms)+"-0-front-view.jpg", urls[0])

	body, obj, err := svc.Open(context.Background(), "listings/"+itoa(ms)+"-1-plan.png")
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "image/jpeg", obj.ContentType, "missing content type defaults to jpeg")
}

func TestUploadService_Rejects(t *testing.T) {
	f := newFixture(t)
	svc := newUploadService(f)
	ctx := context.Background()
	agent := f.user(t, "agent@a.fr", domain.RoleAgent, f.agency(t, "a", true))
	plain := f.user(t, "plain@example.com", domain.RoleAgent, nil)
	ok := file("a.jpg", "image/jpeg", "x")

	_, err := svc.UploadListingImages(ctx, nil, []UploadFile{ok})
	requireStatus(t, err, http.StatusUnauthorized)
	_, err = svc.UploadListingImages(ctx, plain, []UploadFile{ok})
	requireStatus(t, err, http.StatusForbidden)
	_, err = svc.UploadListingImages(ctx, agent, nil)
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.UploadListingImages(ctx, agent, []UploadFile{ok, ok, ok, ok})
	requireStatus(t, err, http.StatusBadRequest)
	_, err = svc.UploadListingImages(ctx, agent, []UploadFile{ok, file("doc.pdf", "application/pdf", "x")})
	requireStatus(t, err, http.StatusBadRequest)

	big := file("big.jpg", "image/jpeg", string(make([]byte, 2048)))
	_, err = svc.UploadListingImages(ctx, agent, []UploadFile{big})
	requireStatus(t, err, http.StatusRequestEntityTooLarge)

	assert.Empty(t, f.blobs.Paths(), "nothing stored when validation fails")
}

func TestUploadService_StoreFailure(t *testing.T) {
	f := newFixture(t)
	svc := newUploadService(f)
	agent := f.user(t, "agent@a.fr", domain.RoleAgent, f.agency(t, "a", true))
	f.blobs.FailWith = errors.New("gridfs down")

	_, err := svc.UploadListingImages(context.Background(), agent, []UploadFile{file("a.jpg", "image/jpeg", "x")})
	requireStatus(t, err, http.StatusInternalServerError)
}

func TestUploadService_OpenMissing(t *testing.T) {
	f := newFixture(t)
	svc := newUploadService(f)

	_, _, err := svc.Open(context.Background(), "listings/none.jpg")
	requireStatus(t, err, http.StatusNotFound)
	_, _, err = svc.Open(context.Background(), "../etc/passwd")
	requireStatus(t, err, http.StatusNotFound)
}
