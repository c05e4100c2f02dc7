package access

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luminacare/lumina/internal/platform/db"
	"github.com/luminacare/lumina/internal/shared"
)

// Repository defines persistence operations for the access module.
type Repository interface {
	GetUserRole(ctx context.Context, userID int64) (Role, error)
	ListRules(ctx context.Context, role Role) ([]Rule, error)
	ReplaceRules(ctx context.Context, rules []Rule) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetUserRole fetches the single role value recorded for a user.
func (r *PGRepository) GetUserRole(ctx context.Context, userID int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `SELECT role FROM user_roles WHERE user_id = $1`, userID).Scan(&role)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", shared.ErrNotFound
		}
		return "", err
	}
	return role, nil
}

// ListRules returns all permission-matrix rows for a role.
func (r *PGRepository) ListRules(ctx context.Context, role Role) ([]Rule, error) {
	rows, err := r.pool.Query(ctx, `SELECT role, resource, can_view, can_create, can_edit, can_delete FROM role_permissions WHERE role = $1 ORDER BY resource`, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.Role, &rule.Resource, &rule.CanView, &rule.CanCreate, &rule.CanEdit, &rule.CanDelete); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

// ReplaceRules performs the bulk "save all" matrix update in one transaction.
// The (role, resource) primary key keeps the matrix free of duplicates.
func (r *PGRepository) ReplaceRules(ctx context.Context, rules []Rule) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, rule := range rules {
			_, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role, resource, can_view, can_create, can_edit, can_delete)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (role, resource) DO UPDATE
				SET can_view = EXCLUDED.can_view,
				    can_create = EXCLUDED.can_create,
				    can_edit = EXCLUDED.can_edit,
				    can_delete = EXCLUDED.can_delete`,
				rule.Role, rule.Resource, rule.CanView, rule.CanCreate, rule.CanEdit, rule.CanDelete)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

var _ Repository = (*PGRepository)(nil)
