package roles

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rolegate/rolegate/internal/platform/httpx"
)

// Handler exposes read endpoints over the role collection and the resolver.
// Role records themselves are provisioned from the catalog, not over HTTP.
type Handler struct {
	logger   *slog.Logger
	store    Store
	resolver *Resolver
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, store Store, resolver *Resolver) *Handler {
	return &Handler{logger: logger, store: store, resolver: resolver}
}

// MountRoutes registers role routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}/scopes", h.effectiveScopes)
}

type roleResponse struct {
	ID          string   `json:"id"`
	ShortName   string   `json:"shortName"`
	DisplayName string   `json:"displayName"`
	Extends     string   `json:"extends,omitempty"`
	Scopes      []string `json:"scopes"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.Find(r.Context(), Filter{})
	if err != nil {
		h.logger.Error("list roles", slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	out := make([]roleResponse, 0, len(all))
	for _, role := range all {
		out = append(out, roleResponse{
			ID:          role.ID,
			ShortName:   role.ShortName,
			DisplayName: role.DisplayName,
			Extends:     role.Extends,
			Scopes:      role.Scopes,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) effectiveScopes(w http.ResponseWriter, r *http.Request) {
	scopes, err := h.resolver.ResolveScopes(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrRoleNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "role not found")
		case errors.Is(err, ErrInheritanceCycle):
			h.logger.Error("resolve scopes", slog.String("error", err.Error()))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "inheritance cycle")
		default:
			h.logger.Error("resolve scopes", slog.String("error", err.Error()))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"scopes": scopes})
}
