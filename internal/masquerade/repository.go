package masquerade

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luminacare/lumina/internal/platform/db"
	"github.com/luminacare/lumina/internal/shared"
)

// Repository defines persistence operations for masquerade sessions.
//
// The masquerade_sessions table carries a partial unique index on
// super_admin_id WHERE is_active, so the at-most-one-active invariant is
// enforced at the storage level, not just here.
type Repository interface {
	StartSession(ctx context.Context, sess *Session) error
	Deactivate(ctx context.Context, sessionID string, endedAt time.Time) error
	EndActive(ctx context.Context, superAdminID int64, endedAt time.Time) (bool, error)
	FindActive(ctx context.Context, superAdminID int64) (*Session, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// StartSession deactivates any prior active session for the issuer and
// inserts the new row in one transaction, in that order. Two racing calls
// can still both pass the deactivate step; the partial unique index makes
// the second insert fail with a unique violation, which the service retries.
func (r *PGRepository) StartSession(ctx context.Context, sess *Session) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			UPDATE masquerade_sessions
			SET is_active = FALSE, ended_at = $2
			WHERE super_admin_id = $1 AND is_active`,
			sess.SuperAdminID, sess.StartedAt)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO masquerade_sessions
				(id, super_admin_id, target_user_id, tenant_id, session_token, is_active, started_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, $6, $7)`,
			sess.ID, sess.SuperAdminID, sess.TargetUserID, sess.TenantID, sess.SessionToken, sess.StartedAt, sess.ExpiresAt)
		return err
	})
}

// Deactivate marks a single session inactive. Used as the compensating step
// when login-link issuance fails after the insert committed.
func (r *PGRepository) Deactivate(ctx context.Context, sessionID string, endedAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE masquerade_sessions
		SET is_active = FALSE, ended_at = $2
		WHERE id = $1 AND is_active`,
		sessionID, endedAt)
	return err
}

// EndActive deactivates the issuer's active session if one exists and
// reports whether a row was touched.
func (r *PGRepository) EndActive(ctx context.Context, superAdminID int64, endedAt time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE masquerade_sessions
		SET is_active = FALSE, ended_at = $2
		WHERE super_admin_id = $1 AND is_active`,
		superAdminID, endedAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// FindActive returns the issuer's active session, or ErrNotFound.
func (r *PGRepository) FindActive(ctx context.Context, superAdminID int64) (*Session, error) {
	var sess Session
	err := r.pool.QueryRow(ctx, `
		SELECT id, super_admin_id, target_user_id, tenant_id, session_token, is_active, started_at, ended_at, expires_at
		FROM masquerade_sessions
		WHERE super_admin_id = $1 AND is_active`,
		superAdminID).Scan(
		&sess.ID, &sess.SuperAdminID, &sess.TargetUserID, &sess.TenantID,
		&sess.SessionToken, &sess.IsActive, &sess.StartedAt, &sess.EndedAt, &sess.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &sess, nil
}

// SweepExpired deactivates every active session past its expiry.
func (r *PGRepository) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE masquerade_sessions
		SET is_active = FALSE, ended_at = $1
		WHERE is_active AND expires_at < $1`,
		now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
