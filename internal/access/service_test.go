package access_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/shared"
	_ "github.com/luminacare/lumina/testing"
)

type stubRepo struct {
	roles     map[int64]access.Role
	rules     map[access.Role][]access.Rule
	roleErr   error
	rulesErr  error
	roleCalls int
}

func (s *stubRepo) GetUserRole(ctx context.Context, userID int64) (access.Role, error) {
	s.roleCalls++
	if s.roleErr != nil {
		return "", s.roleErr
	}
	role, ok := s.roles[userID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return role, nil
}

func (s *stubRepo) ListRules(ctx context.Context, role access.Role) ([]access.Rule, error) {
	if s.rulesErr != nil {
		return nil, s.rulesErr
	}
	return s.rules[role], nil
}

func (s *stubRepo) ReplaceRules(ctx context.Context, rules []access.Rule) error {
	return nil
}

func newService(t *testing.T, repo access.Repository) *access.Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return access.NewService(repo, client, time.Minute, nil)
}

func TestLoadPermissionsNoRoleFailsClosed(t *testing.T) {
	svc := newService(t, &stubRepo{roles: map[int64]access.Role{}})
	set := svc.LoadPermissions(context.Background(), 42)
	if set.Can("patients", access.ActionView) {
		t.Fatal("user without a role row must be denied everything")
	}
}

func TestLoadPermissionsStorageErrorFailsClosed(t *testing.T) {
	svc := newService(t, &stubRepo{roleErr: errors.New("connection refused")})
	set := svc.LoadPermissions(context.Background(), 42)
	if set.Can("patients", access.ActionView) {
		t.Fatal("storage error must resolve to the empty permission set")
	}
}

func TestLoadPermissionsUnknownRoleFailsClosed(t *testing.T) {
	svc := newService(t, &stubRepo{roles: map[int64]access.Role{7: "intern"}})
	set := svc.LoadPermissions(context.Background(), 7)
	if set.Can("patients", access.ActionView) {
		t.Fatal("unknown role value must be denied everything")
	}
}

func TestLoadPermissionsResolvesMatrix(t *testing.T) {
	repo := &stubRepo{
		roles: map[int64]access.Role{9: access.RoleCaregiver},
		rules: map[access.Role][]access.Rule{
			access.RoleCaregiver: {
				{Role: access.RoleCaregiver, Resource: "patients", CanView: true},
			},
		},
	}
	svc := newService(t, repo)
	set := svc.LoadPermissions(context.Background(), 9)
	if !set.Can("patients", access.ActionView) {
		t.Fatal("expected view on patients")
	}
	if set.Can("patients", access.ActionEdit) {
		t.Fatal("expected edit on patients to be denied")
	}
}

func TestLoadPermissionsUsesCache(t *testing.T) {
	repo := &stubRepo{
		roles: map[int64]access.Role{9: access.RoleCaregiver},
		rules: map[access.Role][]access.Rule{
			access.RoleCaregiver: {
				{Role: access.RoleCaregiver, Resource: "patients", CanView: true},
			},
		},
	}
	svc := newService(t, repo)
	ctx := context.Background()
	_ = svc.LoadPermissions(ctx, 9)
	_ = svc.LoadPermissions(ctx, 9)
	if repo.roleCalls != 1 {
		t.Fatalf("expected one storage round-trip, got %d", repo.roleCalls)
	}
}

func TestSaveMatrixRejectsUnknownRole(t *testing.T) {
	svc := newService(t, &stubRepo{})
	err := svc.SaveMatrix(context.Background(), []access.Rule{
		{Role: "intern", Resource: "patients", CanView: true},
	})
	if err == nil {
		t.Fatal("expected unknown role to be rejected")
	}
}
