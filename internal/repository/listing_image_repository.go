package repository

import (
	"context"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// Image rows are only written inside listing transactions, so these helpers
// take a querier rather than owning a pool.

func insertImages(ctx context.Context, q querier, listingID string, images []domain.ListingImage) error {
	const query = `
        INSERT INTO listing_images (listing_id, url, position)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`
	for i := range images {
		images[i].ListingID = listingID
		if err := q.QueryRow(ctx, query,
			listingID,
			images[i].URL,
			images[i].Position,
		).Scan(&images[i].ID, &images[i].CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func deleteImages(ctx context.Context, q querier, listingID string) error {
	_, err := q.Exec(ctx, `DELETE FROM listing_images WHERE listing_id=$1`, listingID)
	return err
}

func imagesForListings(ctx context.Context, q querier, listingIDs []string) (map[string][]domain.ListingImage, error) {
	result := make(map[string][]domain.ListingImage, len(listingIDs))
	if len(listingIDs) == 0 {
		return result, nil
	}

	const query = `
        SELECT id, listing_id, url, position, created_at
        FROM listing_images WHERE listing_id = ANY($1)
        ORDER BY listing_id, position, created_at`
	rows, err := q.Query(ctx, query, listingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var image domain.ListingImage
		if err := rows.Scan(
			&image.ID,
			&image.ListingID,
			&image.URL,
			&image.Position,
			&image.CreatedAt,
		); err != nil {
			return nil, err
		}
		result[image.ListingID] = append(result[image.ListingID], image)
	}
	return result, rows.Err()
}
