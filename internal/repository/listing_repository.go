package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/agency-listings/internal/domain"
)

const defaultListingLimit = 50

// MaxListingPageSize caps the page size of listing queries.
const MaxListingPageSize = 200

// ListingFilter captures scoping and gallery search parameters.
type ListingFilter struct {
	AgencyID           *string
	Statuses           []domain.ListingStatus
	ActiveAgenciesOnly bool
	City               *string
	Type               *string
	SearchTerm         *string
	MinPrice           *float64
	MaxPrice           *float64
	Sort               domain.ListingSort
	Limit              int
	Offset             int
}

// NormalizedPage clamps limit and offset to the accepted range.
func (f ListingFilter) NormalizedPage() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = defaultListingLimit
	}
	if limit > MaxListingPageSize {
		limit = MaxListingPageSize
	}
	offset = f.Offset
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// ListingRepository encapsulates listing persistence. Image rows are always
// written in the same transaction as their listing.
type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	Update(ctx context.Context, listing *domain.Listing, replaceImages bool) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, int, error)
}

type listingRepository struct {
	pool *pgxpool.Pool
}

// NewListingRepository instantiates repository.
func NewListingRepository(pool *pgxpool.Pool) ListingRepository {
	return &listingRepository{pool: pool}
}

const listingSelect = `
        SELECT l.id, l.title, l.description, l.city, l.country, l.price, l.currency, l.status, l.type,
               l.agency_id, l.created_at, l.updated_at,
               a.id, a.name, a.slug, a.city, a.country, a.email, a.phone, a.plan, a.is_active, a.created_at, a.updated_at
        FROM listings l
        JOIN agencies a ON a.id = l.agency_id`

func (r *listingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	const query = `
        INSERT INTO listings (title, description, city, country, price, currency, status, type, agency_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, query,
			listing.Title,
			listing.Description,
			listing.City,
			listing.Country,
			listing.Price,
			listing.Currency,
			listing.Status,
			listing.Type,
			listing.AgencyID,
		).Scan(&listing.ID, &listing.CreatedAt, &listing.UpdatedAt); err != nil {
			return err
		}
		return insertImages(ctx, tx, listing.ID, listing.Images)
	})
}

func (r *listingRepository) Update(ctx context.Context, listing *domain.Listing, replaceImages bool) error {
	const query = `
        UPDATE listings SET title=$1, description=$2, city=$3, country=$4, price=$5, currency=$6,
            status=$7, type=$8, agency_id=$9, updated_at=NOW()
        WHERE id=$10
        RETURNING updated_at`

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if replaceImages {
			if err := deleteImages(ctx, tx, listing.ID); err != nil {
				return err
			}
		}
		if err := tx.QueryRow(ctx, query,
			listing.Title,
			listing.Description,
			listing.City,
			listing.Country,
			listing.Price,
			listing.Currency,
			listing.Status,
			listing.Type,
			listing.AgencyID,
			listing.ID,
		).Scan(&listing.UpdatedAt); err != nil {
			return err
		}
		if replaceImages {
			return insertImages(ctx, tx, listing.ID, listing.Images)
		}
		return nil
	})
}

func (r *listingRepository) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := deleteImages(ctx, tx, id); err != nil {
			return err
		}
		cmd, err := tx.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return nil
	})
}

func (r *listingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	listing, err := scanListing(r.pool.QueryRow(ctx, listingSelect+` WHERE l.id=$1`, id))
	if err != nil {
		return nil, err
	}
	images, err := imagesForListings(ctx, r.pool, []string{listing.ID})
	if err != nil {
		return nil, err
	}
	listing.Images = nonNilImages(images[listing.ID])
	return listing, nil
}

func (r *listingRepository) List(ctx context.Context, filter ListingFilter) ([]domain.Listing, int, error) {
	where, args := listingWhere(filter)
	limit, offset := filter.NormalizedPage()

	var total int
	countQuery := `SELECT COUNT(*) FROM listings l JOIN agencies a ON a.id = l.agency_id WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		listingSelect, where, listingOrder(filter.Sort), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	listings, err := scanListings(rows)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]string, 0, len(listings))
	for _, listing := range listings {
		ids = append(ids, listing.ID)
	}
	images, err := imagesForListings(ctx, r.pool, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range listings {
		listings[i].Images = nonNilImages(images[listings[i].ID])
	}
	return listings, total, nil
}

func listingWhere(filter ListingFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.AgencyID != nil {
		args = append(args, *filter.AgencyID)
		clauses = append(clauses, fmt.Sprintf("l.agency_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("l.status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ActiveAgenciesOnly {
		clauses = append(clauses, "a.is_active")
	}
	if filter.City != nil && strings.TrimSpace(*filter.City) != "" {
		args = append(args, strings.TrimSpace(*filter.City))
		clauses = append(clauses, fmt.Sprintf("LOWER(l.city)=LOWER($%d)", len(args)))
	}
	if filter.Type != nil && strings.TrimSpace(*filter.Type) != "" {
		args = append(args, strings.TrimSpace(*filter.Type))
		clauses = append(clauses, fmt.Sprintf("LOWER(l.type)=LOWER($%d)", len(args)))
	}
	if filter.MinPrice != nil {
		args = append(args, *filter.MinPrice)
		clauses = append(clauses, fmt.Sprintf("l.price >= $%d", len(args)))
	}
	if filter.MaxPrice != nil {
		args = append(args, *filter.MaxPrice)
		clauses = append(clauses, fmt.Sprintf("l.price <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, containsPattern(strings.ToLower(strings.TrimSpace(*filter.SearchTerm))))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			`(LOWER(l.title) LIKE %[1]s ESCAPE '\' OR LOWER(COALESCE(l.description, '')) LIKE %[1]s ESCAPE '\' OR LOWER(l.city) LIKE %[1]s ESCAPE '\')`,
			placeholder))
	}
	return strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds a LIKE pattern matching term literally anywhere.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

func listingOrder(sort domain.ListingSort) string {
	switch sort {
	case domain.ListingSortPriceAsc:
		return "l.price ASC, l.created_at DESC"
	case domain.ListingSortPriceDesc:
		return "l.price DESC, l.created_at DESC"
	default:
		return "l.created_at DESC"
	}
}

func scanListings(rows pgx.Rows) ([]domain.Listing, error) {
	defer rows.Close()
	result := []domain.Listing{}
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *listing)
	}
	return result, rows.Err()
}

func scanListing(row pgx.Row) (*domain.Listing, error) {
	var (
		listing domain.Listing
		agency  domain.Agency
	)
	if err := row.Scan(
		&listing.ID,
		&listing.Title,
		&listing.Description,
		&listing.City,
		&listing.Country,
		&listing.Price,
		&listing.Currency,
		&listing.Status,
		&listing.Type,
		&listing.AgencyID,
		&listing.CreatedAt,
		&listing.UpdatedAt,
		&agency.ID,
		&agency.Name,
		&agency.Slug,
		&agency.City,
		&agency.Country,
		&agency.Email,
		&agency.Phone,
		&agency.Plan,
		&agency.IsActive,
		&agency.CreatedAt,
		&agency.UpdatedAt,
	); err != nil {
		return nil, err
	}
	listing.Agency = &agency
	return &listing, nil
}

func nonNilImages(images []domain.ListingImage) []domain.ListingImage {
	if images == nil {
		return []domain.ListingImage{}
	}
	return images
}
