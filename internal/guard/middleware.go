package guard

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rolegate/rolegate/internal/platform/httpx"
	"github.com/rolegate/rolegate/internal/shared"
)

const maxInterceptedBody = 1 << 20

// Middleware adapts the guard's interceptors to chi handler chains. The
// surrounding router registers these explicitly on the routes they protect.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// assignmentBody is the slice of a request body the interceptor inspects.
type assignmentBody struct {
	ID    string    `json:"id"`
	Roles *[]string `json:"roles"`
}

// RoleAssignment runs the pre-commit role-assignment interceptor. The body
// is inspected for a roles field and restored for the downstream handler.
func (m Middleware) RoleAssignment(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := RoleAssignmentRequest{
			Phase:         PhaseValidate,
			Method:        r.Method,
			RequesterID:   shared.PrincipalFromContext(r.Context()),
			TargetParamID: chi.URLParam(r, "id"),
		}

		if r.Body != nil && r.Body != http.NoBody {
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxInterceptedBody+1))
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
				return
			}
			if len(raw) > maxInterceptedBody {
				httpx.Problem(w, http.StatusRequestEntityTooLarge, "Payload Too Large", "request body exceeds limit")
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(raw))

			// A body that cannot be inspected must not slip past the
			// interceptor uninspected.
			if len(raw) > 0 {
				var body assignmentBody
				if err := json.Unmarshal(raw, &body); err != nil {
					httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed body")
					return
				}
				req.BodyID = body.ID
				if body.Roles != nil {
					req.Roles = *body.Roles
					req.RolesPresent = true
				}
			}
		}

		if err := m.Guard.AuthorizeRoleAssignment(r.Context(), req); err != nil {
			m.reject(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// AccessCheck runs the generic access-check interceptor. Reads pass without
// touching the target.
func (m Middleware) AccessCheck(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := AccessRequest{
			Modifying:   isModifying(r.Method),
			RequesterID: shared.PrincipalFromContext(r.Context()),
			TargetID:    chi.URLParam(r, "id"),
		}
		if err := m.Guard.CheckAccess(r.Context(), req); err != nil {
			m.reject(w, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSession rejects requests that carry no authenticated principal.
func (m Middleware) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if shared.PrincipalFromContext(r.Context()) == "" {
			httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (m Middleware) reject(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrUnauthorized) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
		return
	}
	if m.Logger != nil {
		m.Logger.Error("guard evaluation failed", slog.String("error", err.Error()))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func isModifying(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return false
	}
	return true
}
