package identity

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/luminacare/lumina/internal/platform/httpx"
	"github.com/luminacare/lumina/internal/shared"
)

// Middleware resolves the bearer credential on incoming requests.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Resolve attaches the caller identity to the request context when a valid
// bearer token is present. Requests without one pass through anonymous;
// route-level guards decide whether that is acceptable.
func (m Middleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		id, err := m.Service.Verify(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithIdentity(r.Context(), id)))
	})
}

// RequireAuth rejects requests without a resolved identity.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.IdentityFromContext(r.Context()) == nil {
			if m.Logger != nil {
				m.Logger.Warn("unauthenticated request", slog.String("path", r.URL.Path))
			}
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
