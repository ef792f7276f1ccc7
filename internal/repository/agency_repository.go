package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// AgencyRepository defines persistence access for agencies.
type AgencyRepository interface {
	Create(ctx context.Context, agency *domain.Agency) error
	Update(ctx context.Context, agency *domain.Agency) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Agency, error)
	List(ctx context.Context) ([]domain.Agency, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
}

type agencyRepository struct {
	pool *pgxpool.Pool
}

// NewAgencyRepository returns a Postgres-backed implementation.
func NewAgencyRepository(pool *pgxpool.Pool) AgencyRepository {
	return &agencyRepository{pool: pool}
}

const agencyColumns = `id, name, slug, city, country, email, phone, plan, is_active, created_at, updated_at`

func (r *agencyRepository) Create(ctx context.Context, agency *domain.Agency) error {
	return insertAgency(ctx, r.pool, agency)
}

func insertAgency(ctx context.Context, q querier, agency *domain.Agency) error {
	if agency.Plan == "" {
		agency.Plan = domain.AgencyPlanFree
	}
	const query = `
        INSERT INTO agencies (name, slug, city, country, email, phone, plan, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id, created_at, updated_at`

	return q.QueryRow(ctx, query,
		agency.Name,
		agency.Slug,
		agency.City,
		agency.Country,
		agency.Email,
		agency.Phone,
		agency.Plan,
		agency.IsActive,
	).Scan(&agency.ID, &agency.CreatedAt, &agency.UpdatedAt)
}

func (r *agencyRepository) Update(ctx context.Context, agency *domain.Agency) error {
	const query = `
        UPDATE agencies SET name=$1, city=$2, country=$3, email=$4, phone=$5, plan=$6, is_active=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		agency.Name,
		agency.City,
		agency.Country,
		agency.Email,
		agency.Phone,
		agency.Plan,
		agency.IsActive,
		agency.ID,
	).Scan(&agency.UpdatedAt)
	return err
}

func (r *agencyRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM agencies WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *agencyRepository) GetByID(ctx context.Context, id string) (*domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies WHERE id=$1`

	var agency domain.Agency
	if err := scanAgency(r.pool.QueryRow(ctx, query, id), &agency); err != nil {
		return nil, err
	}
	return &agency, nil
}

func (r *agencyRepository) List(ctx context.Context) ([]domain.Agency, error) {
	query := `SELECT ` + agencyColumns + ` FROM agencies ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Agency{}
	for rows.Next() {
		var agency domain.Agency
		if err := scanAgency(rows, &agency); err != nil {
			return nil, err
		}
		result = append(result, agency)
	}
	return result, rows.Err()
}

func (r *agencyRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agencies WHERE slug=$1)`, slug).Scan(&exists)
	return exists, err
}

func scanAgency(row pgx.Row, agency *domain.Agency) error {
	return row.Scan(
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
	)
}
