package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/agency-listings/internal/domain"
)

// UserRepository defines persistence access for accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	// CreateWithAgency inserts the agency and its first user atomically.
	CreateWithAgency(ctx context.Context, agency *domain.Agency, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userSelect = `
        SELECT u.id, u.email, u.name, u.password_hash, u.role, u.agency_id, u.is_active, u.last_login_at,
               u.created_at, u.updated_at,
               a.name, a.slug, a.city, a.country, a.is_active
        FROM users u
        LEFT JOIN agencies a ON a.id = u.agency_id`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return insertUser(ctx, r.pool, user)
}

func (r *userRepository) CreateWithAgency(ctx context.Context, agency *domain.Agency, user *domain.User) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := insertAgency(ctx, tx, agency); err != nil {
			return err
		}
		user.AgencyID = &agency.ID
		if err := insertUser(ctx, tx, user); err != nil {
			return err
		}
		user.Agency = agency
		return nil
	})
}

func insertUser(ctx context.Context, q querier, user *domain.User) error {
	const query = `
        INSERT INTO users (email, name, password_hash, role, agency_id, is_active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return q.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.AgencyID,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id=$1`, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE LOWER(u.email)=LOWER($1)`, email))
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at=$1, updated_at=NOW() WHERE id=$2`, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var (
		user           domain.User
		agencyName     *string
		agencySlug     *string
		agencyCity     *string
		agencyCountry  *string
		agencyIsActive *bool
	)
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.AgencyID,
		&user.IsActive,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
		&agencyName,
		&agencySlug,
		&agencyCity,
		&agencyCountry,
		&agencyIsActive,
	); err != nil {
		return nil, err
	}
	if user.AgencyID != nil && agencyName != nil {
		user.Agency = &domain.Agency{
			ID:       *user.AgencyID,
			Name:     *agencyName,
			Slug:     deref(agencySlug),
			City:     deref(agencyCity),
			Country:  deref(agencyCountry),
			IsActive: agencyIsActive != nil && *agencyIsActive,
		}
	}
	return &user, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
