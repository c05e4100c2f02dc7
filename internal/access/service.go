package access

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/luminacare/lumina/internal/shared"
)

// Service resolves a caller's role and permission matrix. The resolved
// PermissionSet is returned as a value and threaded through the request;
// nothing here is read from ambient state.
type Service struct {
	repo   Repository
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewService constructs a Service. The cache client is optional; without it
// every load goes straight to storage.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// LoadPermissions fetches the user's role and matrix rows and returns the
// resolved mapping. It fails closed: a user without a role row, an unknown
// role value, or a storage error all resolve to the empty (denying) set.
// The caller always gets a defined answer, never an error to interpret.
func (s *Service) LoadPermissions(ctx context.Context, userID int64) PermissionSet {
	if set, ok := s.cached(ctx, userID); ok {
		return set
	}

	role, err := s.repo.GetUserRole(ctx, userID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) && s.logger != nil {
			s.logger.Error("load user role", slog.Int64("user_id", userID), slog.Any("error", err))
		}
		return PermissionSet{}
	}
	if !Known(role) {
		if s.logger != nil {
			s.logger.Warn("unknown role value", slog.Int64("user_id", userID), slog.String("role", string(role)))
		}
		return PermissionSet{}
	}

	rules, err := s.repo.ListRules(ctx, role)
	if err != nil {
		if s.logger != nil {
			s.logger.Error("load role permissions", slog.String("role", string(role)), slog.Any("error", err))
		}
		return PermissionSet{}
	}

	set := PermissionSet{Role: role, Rules: make(map[string]Rule, len(rules))}
	for _, rule := range rules {
		set.Rules[rule.Resource] = rule
	}
	s.store(ctx, userID, set)
	return set
}

// RoleOf fetches the user's recorded role straight from storage, bypassing
// the cache. Privileged flows re-check the role here rather than trusting
// anything the client resolved earlier.
func (s *Service) RoleOf(ctx context.Context, userID int64) (Role, error) {
	return s.repo.GetUserRole(ctx, userID)
}

// SaveMatrix applies a bulk matrix update and flushes the permission cache.
func (s *Service) SaveMatrix(ctx context.Context, rules []Rule) error {
	for _, rule := range rules {
		if !Known(rule.Role) || rule.Resource == "" {
			return shared.ErrOperationFailed
		}
	}
	if err := s.repo.ReplaceRules(ctx, rules); err != nil {
		return err
	}
	s.invalidateAll(ctx)
	return nil
}

// Invalidate drops one user's cached permission set, e.g. after a role change.
func (s *Service) Invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, permissionKey(userID)).Err()
}

func (s *Service) cached(ctx context.Context, userID int64) (PermissionSet, bool) {
	if s.cache == nil {
		return PermissionSet{}, false
	}
	payload, err := s.cache.Get(ctx, permissionKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && s.logger != nil {
			s.logger.Warn("permission cache read", slog.Any("error", err))
		}
		return PermissionSet{}, false
	}
	var set PermissionSet
	if err := json.Unmarshal(payload, &set); err != nil {
		return PermissionSet{}, false
	}
	return set, true
}

func (s *Service) store(ctx context.Context, userID int64, set PermissionSet) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(set)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, permissionKey(userID), payload, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.Warn("permission cache write", slog.Any("error", err))
	}
}

func (s *Service) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, "permissions:*", 100).Iterator()
	for iter.Next(ctx) {
		_ = s.cache.Del(ctx, iter.Val()).Err()
	}
	if err := iter.Err(); err != nil && s.logger != nil {
		s.logger.Warn("permission cache flush", slog.Any("error", err))
	}
}

func permissionKey(userID int64) string {
	return "permissions:" + strconv.FormatInt(userID, 10)
}
