package orgs

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luminacare/lumina/internal/shared"
)

// RepositoryPort defines data access methods for organizations.
type RepositoryPort interface {
	List(ctx context.Context) ([]Organization, error)
	Get(ctx context.Context, id int64) (*Organization, error)
	Create(ctx context.Context, org *Organization) (int64, error)
	Update(ctx context.Context, org *Organization) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const orgColumns = `id, name, slug, plan, is_active, created_at, updated_at`

// List returns all organizations ordered by name.
func (r *Repository) List(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+orgColumns+` FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orgs []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.IsActive, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orgs, nil
}

// Get fetches one organization by id.
func (r *Repository) Get(ctx context.Context, id int64) (*Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx, `SELECT `+orgColumns+` FROM organizations WHERE id = $1`, id).
		Scan(&org.ID, &org.Name, &org.Slug, &org.Plan, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// Create inserts a new organization.
func (r *Repository) Create(ctx context.Context, org *Organization) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO organizations (name, slug, plan, is_active)
		VALUES ($1, $2, $3, TRUE)
		RETURNING id`,
		org.Name, org.Slug, org.Plan).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Update modifies an existing organization.
func (r *Repository) Update(ctx context.Context, org *Organization) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE organizations
		SET name = $2, plan = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1`,
		org.ID, org.Name, org.Plan, org.IsActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ RepositoryPort = (*Repository)(nil)
