package principals

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rolegate/rolegate/internal/guard"
	"github.com/rolegate/rolegate/internal/platform/httpx"
)

// Handler wires HTTP endpoints for principal management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     guard.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guardMW guard.Middleware) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		guard:     guardMW,
		validator: validator.New(),
	}
}

// MountRoutes registers principal routes. Mutating routes run the access
// check and the role-assignment interceptor. Both are registered on the
// inline group so they wrap the matched endpoint and see the {id} route
// parameter; a subtree Use would run before routing and read an empty id.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.RequireSession)

	r.Get("/", h.list)
	r.Get("/{id}", h.get)

	r.Group(func(r chi.Router) {
		r.Use(h.guard.AccessCheck)
		r.Use(h.guard.RoleAssignment)
		r.Post("/", h.create)
		r.Patch("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

type createRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Name     string   `json:"name" validate:"required"`
	AuthType string   `json:"authType" validate:"omitempty,alphanum"`
	Password string   `json:"password" validate:"omitempty,min=8"`
	Roles    []string `json:"roles"`
}

type updateRequest struct {
	Email    string   `json:"email" validate:"omitempty,email"`
	Name     string   `json:"name"`
	AuthType string   `json:"authType" validate:"omitempty,alphanum"`
	Active   *bool    `json:"active"`
	Roles    []string `json:"roles"`
}

type principalResponse struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Name     string   `json:"name"`
	AuthType string   `json:"authType"`
	Roles    []string `json:"roles"`
	Active   bool     `json:"active"`
}

func toResponse(p Principal) principalResponse {
	if p.Roles == nil {
		p.Roles = []string{}
	}
	return principalResponse{
		ID:       p.ID,
		Email:    p.Email,
		Name:     p.Name,
		AuthType: p.AuthType,
		Roles:    p.Roles,
		Active:   p.Active,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, "list principals", err)
		return
	}
	out := make([]principalResponse, 0, len(all))
	for _, p := range all {
		out = append(out, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get principal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Create(r.Context(), CreateInput{
		Email:    req.Email,
		Name:     req.Name,
		AuthType: req.AuthType,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		h.fail(w, "create principal", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), UpdateInput{
		Email:    req.Email,
		Name:     req.Name,
		AuthType: req.AuthType,
		Active:   req.Active,
		Roles:    req.Roles,
	})
	if err != nil {
		h.fail(w, "update principal", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(p))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete principal", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "principal not found")
	case errors.Is(err, ErrDuplicate):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "email already registered")
	default:
		h.logger.Error(op, slog.String("error", err.Error()))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
