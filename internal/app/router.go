package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/masquerade"
	"github.com/luminacare/lumina/internal/observability"
	"github.com/luminacare/lumina/internal/orgs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	IdentityMW        identity.Middleware
	IdentityHandler   *identity.Handler
	AccessHandler     *access.Handler
	MasqueradeHandler *masquerade.Handler
	OrgsHandler       *orgs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Lumina defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:   params.Logger,
		Config:   params.Config,
		Identity: params.IdentityMW,
		Metrics:  params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/identity", params.IdentityHandler.MountRoutes)

	if params.AccessHandler != nil {
		r.Route("/access", params.AccessHandler.MountRoutes)
	}

	if params.MasqueradeHandler != nil {
		r.Route("/masquerade", func(r chi.Router) {
			params.MasqueradeHandler.MountRoutes(r)
		})
	}

	if params.OrgsHandler != nil {
		r.Route("/organizations", func(r chi.Router) {
			r.Use(params.IdentityMW.RequireAuth)
			params.OrgsHandler.MountRoutes(r)
		})
	}

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
