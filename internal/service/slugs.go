package service

import (
	"context"
	"fmt"

	"github.com/spec-kit/agency-listings/internal/repository"
	"github.com/spec-kit/agency-listings/pkg/util"
)

const maxSlugAttempts = 100

// uniqueAgencySlug derives a slug from name and appends -2, -3, ... until it is free.
func uniqueAgencySlug(ctx context.Context, agencies repository.AgencyRepository, name string) (string, error) {
	base := util.Slugify(name)
	if base == "" {
		base = "agency"
	}
	candidate := base
	for i := 2; i <= maxSlugAttempts+1; i++ {
		exists, err := agencies.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", util.NewConflict("could not allocate a unique slug", map[string]any{"slug": base})
}
