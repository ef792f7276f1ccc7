package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImagesFromURLs_PositionsFollowOrder(t *testing.T) {
	images := ImagesFromURLs("l1", []string{"a", "b", "c"})

	assert.Len(t, images, 3)
	for i, img := range images {
		assert.Equal(t, i, img.Position)
		assert.Equal(t, "l1", img.ListingID)
	}
	assert.Equal(t, "c", images[2].URL)
}

func TestUser_Scoping(t *testing.T) {
	agencyID := "a1"
	staff := &User{Role: RoleAgent, AgencyID: &agencyID}
	plain := &User{Role: RoleAgent}
	admin := &User{Role: RoleSuperAdmin}

	assert.True(t, staff.BelongsTo("a1"))
	assert.False(t, staff.BelongsTo("a2"))
	assert.False(t, plain.HasAgency())
	assert.False(t, plain.BelongsTo("a1"))
	assert.True(t, admin.IsSuperAdmin())

	var nobody *User
	assert.False(t, nobody.IsSuperAdmin())
	assert.False(t, nobody.HasAgency())
}

func TestEnums_Valid(t *testing.T) {
	assert.True(t, ListingStatusDraft.Valid())
	assert.False(t, ListingStatus("SOLD").Valid())
	assert.True(t, AgencyPlanPremium.Valid())
	assert.False(t, AgencyPlan("GOLD").Valid())
	assert.True(t, RoleAgencyAdmin.Valid())
	assert.False(t, Role("OWNER").Valid())
	assert.True(t, ListingSortPriceAsc.Valid())
	assert.False(t, ListingSort("RANDOM").Valid())
}
