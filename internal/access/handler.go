package access

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/luminacare/lumina/internal/platform/httpx"
	"github.com/luminacare/lumina/internal/shared"
)

// Handler wires HTTP endpoints for permission resolution and matrix admin.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	validator  *validator.Validate
	auth       func(http.Handler) http.Handler
	superAdmin func(http.Handler) http.Handler
}

// NewHandler constructs a Handler instance. The auth guard rejects
// anonymous callers; the superAdmin guard additionally restricts the
// matrix admin route. Funcs are used instead of the identity middleware
// type to keep this package free of an identity dependency.
func NewHandler(logger *slog.Logger, service *Service, auth, superAdmin func(http.Handler) http.Handler) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New(), auth: auth, superAdmin: superAdmin}
}

// MountRoutes registers access routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		r.Post("/permissions", h.permissions)
	})
	r.Group(func(r chi.Router) {
		if h.auth != nil {
			r.Use(h.auth)
		}
		if h.superAdmin != nil {
			r.Use(h.superAdmin)
		}
		r.Put("/matrix", h.saveMatrix)
	})
}

type permissionsResponse struct {
	Role         Role            `json:"role"`
	IsSuperAdmin bool            `json:"isSuperAdmin"`
	IsOrgUser    bool            `json:"isOrgUser"`
	Permissions  map[string]Rule `json:"permissions"`
}

func (h *Handler) permissions(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	if id == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	set := h.service.LoadPermissions(r.Context(), id.UserID)
	rules := set.Rules
	if rules == nil {
		rules = map[string]Rule{}
	}
	httpx.JSON(w, http.StatusOK, permissionsResponse{
		Role:         set.Role,
		IsSuperAdmin: IsSuperAdmin(set.Role),
		IsOrgUser:    IsOrgUser(set.Role),
		Permissions:  rules,
	})
}

type saveMatrixRequest struct {
	Rules []matrixRule `json:"rules" validate:"required,min=1,dive"`
}

type matrixRule struct {
	Role      string `json:"role" validate:"required"`
	Resource  string `json:"resource" validate:"required"`
	CanView   bool   `json:"can_view"`
	CanCreate bool   `json:"can_create"`
	CanEdit   bool   `json:"can_edit"`
	CanDelete bool   `json:"can_delete"`
}

// saveMatrix applies a bulk permission-matrix update. The route is mounted
// behind the super-admin middleware; the service re-validates role values.
func (h *Handler) saveMatrix(w http.ResponseWriter, r *http.Request) {
	var req saveMatrixRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rules := make([]Rule, 0, len(req.Rules))
	for _, rule := range req.Rules {
		if !Known(Role(rule.Role)) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown role: "+rule.Role)
			return
		}
		rules = append(rules, Rule{
			Role:      Role(rule.Role),
			Resource:  rule.Resource,
			CanView:   rule.CanView,
			CanCreate: rule.CanCreate,
			CanEdit:   rule.CanEdit,
			CanDelete: rule.CanDelete,
		})
	}
	if err := h.service.SaveMatrix(r.Context(), rules); err != nil {
		h.logger.Error("save permission matrix", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updated": len(rules)})
}
