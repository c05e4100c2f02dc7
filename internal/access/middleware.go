package access

import (
	"log/slog"
	"net/http"

	"github.com/luminacare/lumina/internal/observability"
	"github.com/luminacare/lumina/internal/platform/httpx"
	"github.com/luminacare/lumina/internal/shared"
)

// Middleware wires permission checks into HTTP handlers. It expects the
// identity middleware to have resolved the caller already.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// Require ensures the caller may perform action on resource. Denials are a
// 403; a missing identity is a 401. Unknown resources deny by construction.
func (m Middleware) Require(resource string, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := shared.IdentityFromContext(r.Context())
			if id == nil {
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			set := m.Service.LoadPermissions(r.Context(), id.UserID)
			if !set.Can(resource, action) {
				m.Metrics.PermissionDenied()
				if m.Logger != nil {
					m.Logger.Warn("permission denied",
						slog.Int64("user_id", id.UserID),
						slog.String("resource", resource),
						slog.String("action", string(action)))
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSuperAdmin ensures the caller's role belongs to the platform set.
func (m Middleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := shared.IdentityFromContext(r.Context())
		if id == nil {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		role, err := m.Service.RoleOf(r.Context(), id.UserID)
		if err != nil || !IsSuperAdmin(role) {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
