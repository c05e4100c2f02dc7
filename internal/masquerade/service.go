package masquerade

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/observability"
	"github.com/luminacare/lumina/internal/platform/db"
	"github.com/luminacare/lumina/internal/shared"
)

// IdentityProvider is the identity/auth boundary the broker relies on.
type IdentityProvider interface {
	Verify(ctx context.Context, token string) (*shared.Identity, error)
	GenerateLoginLink(ctx context.Context, targetUserID int64, masqueradeToken string) (string, error)
}

// RoleSource resolves a user's recorded role straight from storage. The
// broker never trusts a role the client resolved earlier.
type RoleSource interface {
	RoleOf(ctx context.Context, userID int64) (access.Role, error)
}

// Auditor records masquerade lifecycle events.
type Auditor interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the only component allowed to mint masquerade sessions.
type Service struct {
	repo       Repository
	identities IdentityProvider
	roles      RoleSource
	audit      Auditor
	metrics    *observability.Metrics
	ttl        time.Duration
	logger     *slog.Logger
}

// NewService constructs the broker. Audit and metrics are optional.
func NewService(repo Repository, identities IdentityProvider, roles RoleSource, audit Auditor, metrics *observability.Metrics, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Service{
		repo:       repo,
		identities: identities,
		roles:      roles,
		audit:      audit,
		metrics:    metrics,
		ttl:        ttl,
		logger:     logger,
	}
}

// StartResult is returned from a successful Start.
type StartResult struct {
	SessionID    string `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
	LoginURL     string `json:"loginUrl"`
}

// startRetries bounds the retry-on-conflict loop around the
// deactivate-then-insert transaction. A conflict means another Start for
// the same issuer won the race; retrying deactivates that winner.
const startRetries = 3

// Start opens an impersonation grant targeting another user. The caller
// must hold exactly the administrator role, re-checked server-side. Any
// prior active session for the caller is superseded.
func (s *Service) Start(ctx context.Context, callerToken string, targetUserID int64, tenantID *int64) (*StartResult, error) {
	caller, err := s.identities.Verify(ctx, callerToken)
	if err != nil {
		s.metrics.MasqueradeFailed("unauthenticated")
		return nil, shared.ErrUnauthenticated
	}

	role, err := s.roles.RoleOf(ctx, caller.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		s.metrics.MasqueradeFailed("storage")
		s.logger.Error("resolve caller role", slog.Int64("user_id", caller.UserID), slog.Any("error", err))
		return nil, shared.ErrOperationFailed
	}
	if err != nil || role != access.RoleAdministrator {
		s.metrics.MasqueradeFailed("forbidden")
		return nil, shared.ErrForbidden
	}

	token, err := newSessionToken()
	if err != nil {
		return nil, fmt.Errorf("masquerade: session token: %w", err)
	}
	now := time.Now().UTC()
	sess := &Session{
		ID:           uuid.NewString(),
		SuperAdminID: caller.UserID,
		TargetUserID: targetUserID,
		TenantID:     tenantID,
		SessionToken: token,
		IsActive:     true,
		StartedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
	}

	if err := s.startWithRetry(ctx, sess); err != nil {
		s.metrics.MasqueradeFailed("storage")
		s.logger.Error("start masquerade session", slog.Any("error", err))
		return nil, shared.ErrOperationFailed
	}

	loginURL, err := s.identities.GenerateLoginLink(ctx, targetUserID, token)
	if err != nil {
		// The insert committed; without a usable login artifact the grant
		// must not stay active.
		if derr := s.repo.Deactivate(ctx, sess.ID, time.Now().UTC()); derr != nil {
			s.logger.Error("compensating deactivation", slog.String("session_id", sess.ID), slog.Any("error", derr))
		}
		s.metrics.MasqueradeFailed("login_link")
		s.logger.Error("generate login link", slog.Int64("target_user_id", targetUserID), slog.Any("error", err))
		return nil, shared.ErrOperationFailed
	}

	s.metrics.MasqueradeStarted()
	s.recordAudit(ctx, caller.UserID, "masquerade.start", sess.ID, map[string]any{
		"target_user_id": targetUserID,
		"tenant_id":      tenantID,
	})
	return &StartResult{SessionID: sess.ID, SessionToken: token, LoginURL: loginURL}, nil
}

// End revokes the caller's active session. Calling it with no active
// session is a no-op success, never an error.
func (s *Service) End(ctx context.Context, callerToken string) error {
	caller, err := s.identities.Verify(ctx, callerToken)
	if err != nil {
		return shared.ErrUnauthenticated
	}
	ended, err := s.repo.EndActive(ctx, caller.UserID, time.Now().UTC())
	if err != nil {
		s.logger.Error("end masquerade session", slog.Any("error", err))
		return shared.ErrOperationFailed
	}
	if ended {
		s.metrics.MasqueradeEnded(1)
		s.recordAudit(ctx, caller.UserID, "masquerade.end", strconv.FormatInt(caller.UserID, 10), nil)
	}
	return nil
}

// CheckResult is returned from Check.
type CheckResult struct {
	IsMasquerading bool     `json:"isMasquerading"`
	Session        *Session `json:"session"`
}

// Check reports whether the caller currently holds an active grant. An
// expired row is treated as inactive and deactivated on the spot.
func (s *Service) Check(ctx context.Context, callerToken string) (*CheckResult, error) {
	caller, err := s.identities.Verify(ctx, callerToken)
	if err != nil {
		return nil, shared.ErrUnauthenticated
	}
	sess, err := s.repo.FindActive(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return &CheckResult{IsMasquerading: false}, nil
		}
		s.logger.Error("check masquerade session", slog.Any("error", err))
		return nil, shared.ErrOperationFailed
	}
	if sess.Expired(time.Now().UTC()) {
		if derr := s.repo.Deactivate(ctx, sess.ID, time.Now().UTC()); derr != nil {
			s.logger.Warn("deactivate expired session", slog.String("session_id", sess.ID), slog.Any("error", derr))
		} else {
			s.metrics.MasqueradeEnded(1)
		}
		return &CheckResult{IsMasquerading: false}, nil
	}
	return &CheckResult{IsMasquerading: true, Session: sess}, nil
}

// SweepExpired deactivates every active grant past its expiry. Called from
// the background worker on a schedule.
func (s *Service) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	swept, err := s.repo.SweepExpired(ctx, now.UTC())
	if err != nil {
		return 0, err
	}
	s.metrics.MasqueradeEnded(swept)
	return swept, nil
}

func (s *Service) startWithRetry(ctx context.Context, sess *Session) error {
	var err error
	for attempt := 0; attempt < startRetries; attempt++ {
		err = s.repo.StartSession(ctx, sess)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err) && !db.IsSerializationFailure(err) {
			return err
		}
	}
	return err
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "masquerade_session",
		EntityID: entityID,
		Meta:     meta,
		At:       time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("record audit", slog.String("action", action), slog.Any("error", err))
	}
}

// newSessionToken returns a full-entropy 256-bit token.
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
