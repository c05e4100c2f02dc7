package masquerade

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/platform/httpx"
)

// Handler wires the single masquerade endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers masquerade routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.dispatch)
}

type masqueradeRequest struct {
	Action       string `json:"action" validate:"required,oneof=start end check"`
	TargetUserID *int64 `json:"targetUserId" validate:"required_if=Action start"`
	TenantID     *int64 `json:"tenantId"`
}

// dispatch routes the {action} body to the matching broker operation. The
// bearer credential travels in the Authorization header and is re-verified
// by the service; nothing in the body is trusted for authorization.
func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request) {
	token := identity.BearerToken(r)

	var req masqueradeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "Request body is not valid JSON")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	switch req.Action {
	case "start":
		result, err := h.service.Start(r.Context(), token, *req.TargetUserID, req.TenantID)
		if err != nil {
			h.logger.Warn("start masquerade", slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	case "end":
		if err := h.service.End(r.Context(), token); err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
	case "check":
		result, err := h.service.Check(r.Context(), token)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown action")
	}
}
