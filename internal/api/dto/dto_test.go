package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/agency-listings/internal/domain"
)

func TestListingRequest_PriceText(t *testing.T) {
	cases := map[string]string{
		`{"price": 1200.5}`:  "1200.5",
		`{"price": "99000"}`: "99000",
		`{"price": null}`:    "",
		`{}`:                 "",
		`{"price": "  12 "}`: "  12 ",
	}
	for body, want := range cases {
		var req ListingRequest
		require.NoError(t, json.Unmarshal([]byte(body), &req))
		assert.Equal(t, want, req.PriceText(), body)
	}
}

func TestListingRequest_ImageURLsPresence(t *testing.T) {
	var absent, empty ListingRequest
	require.NoError(t, json.Unmarshal([]byte(`{}`), &absent))
	require.NoError(t, json.Unmarshal([]byte(`{"imageUrls": []}`), &empty))

	assert.Nil(t, absent.ImageURLs)
	assert.NotNil(t, empty.ImageURLs)
	assert.Empty(t, empty.ImageURLs)
}

func TestNewUserResponse_OmitsPasswordHash(t *testing.T) {
	user := &domain.User{
		ID:           "u1",
		Email:        "a@b.c",
		PasswordHash: "$2a$secret",
		Role:         domain.RoleAgent,
		Agency:       &domain.Agency{ID: "a1", Name: "Sunny", Slug: "sunny"},
	}
	raw, err := json.Marshal(NewUserResponse(user))
	require.NoError(t, err)

	assert.NotContains(t, string(raw), "secret")
	assert.Contains(t, string(raw), `"agency":{"id":"a1"`)
}

func TestNewListingResponses_NeverNil(t *testing.T) {
	raw, err := json.Marshal(NewListingResponses(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	listing := NewListingResponse(&domain.Listing{ID: "l1"})
	assert.NotNil(t, listing.Images)
	assert.Nil(t, listing.Agency)
}
