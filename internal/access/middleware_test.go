package access_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/shared"
)

func guardedHandler(t *testing.T, repo access.Repository, resource string, action access.Action) http.Handler {
	t.Helper()
	mw := access.Middleware{Service: newService(t, repo)}
	return mw.Require(resource, action)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func asUser(userID int64) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	return req.WithContext(shared.ContextWithIdentity(context.Background(), &shared.Identity{UserID: userID}))
}

func TestRequireWithoutIdentity(t *testing.T) {
	h := guardedHandler(t, &stubRepo{}, "patients", access.ActionView)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestRequireDeniesMissingGrant(t *testing.T) {
	repo := &stubRepo{
		roles: map[int64]access.Role{2: access.RoleCaregiver},
		rules: map[access.Role][]access.Rule{
			access.RoleCaregiver: {{Role: access.RoleCaregiver, Resource: "patients", CanView: true}},
		},
	}
	h := guardedHandler(t, repo, "patients", access.ActionDelete)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, asUser(2))
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestRequireAllowsGrantedAction(t *testing.T) {
	repo := &stubRepo{
		roles: map[int64]access.Role{2: access.RoleCaregiver},
		rules: map[access.Role][]access.Rule{
			access.RoleCaregiver: {{Role: access.RoleCaregiver, Resource: "patients", CanView: true}},
		},
	}
	h := guardedHandler(t, repo, "patients", access.ActionView)
	res := httptest.NewRecorder()
	h.ServeHTTP(res, asUser(2))
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
}

func TestRequireSuperAdmin(t *testing.T) {
	repo := &stubRepo{roles: map[int64]access.Role{
		1: access.RoleAdministrator,
		2: access.RoleCaregiver,
	}}
	mw := access.Middleware{Service: newService(t, repo)}
	h := mw.RequireSuperAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	res := httptest.NewRecorder()
	h.ServeHTTP(res, asUser(1))
	if res.Code != http.StatusNoContent {
		t.Fatalf("administrator: expected 204, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	h.ServeHTTP(res, asUser(2))
	if res.Code != http.StatusForbidden {
		t.Fatalf("caregiver: expected 403, got %d", res.Code)
	}
}
