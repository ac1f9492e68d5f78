package principals

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rolegate/rolegate/internal/guard"
	"github.com/rolegate/rolegate/internal/roles"
	"github.com/rolegate/rolegate/internal/shared"
)

type memRoleStore struct {
	roles []roles.Role
}

func (s *memRoleStore) Find(_ context.Context, f roles.Filter) ([]roles.Role, error) {
	var out []roles.Role
	for _, r := range s.roles {
		if f.ID != "" && r.ID != f.ID {
			continue
		}
		if f.ShortName != "" && r.ShortName != f.ShortName {
			continue
		}
		if f.SuperOnly && !r.IsSuper() {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (s *memRoleStore) Insert(context.Context, roles.Role) (roles.Role, error) {
	return roles.Role{}, errors.New("not implemented")
}

func (s *memRoleStore) Replace(context.Context, string, roles.Role) error {
	return errors.New("not implemented")
}

type memRevoker struct {
	mu       sync.Mutex
	disavows []string
}

func (m *memRevoker) Disavow(_ context.Context, principalID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disavows = append(m.disavows, principalID)
	return nil
}

// newHandlerFixture wires the real handler, service, and guard over
// in-memory stores, mounted exactly the way the router mounts them.
func newHandlerFixture() (*chi.Mux, *memRepo, *memRevoker) {
	roleStore := &memRoleStore{roles: []roles.Role{
		{ID: "role-super", ShortName: "superadmin", Scopes: []string{roles.SuperScope}},
		{ID: "role-mod", ShortName: "moderator", Scopes: []string{roles.ScopeAssignRoles, "read:principals"}},
		{ID: "role-auth", ShortName: "authuser", Scopes: []string{"read:profile"}},
	}}
	repo := newMemRepo(
		Principal{Email: "root@example.com", Roles: []string{"role-super"}, Active: true},
		Principal{Email: "mod@example.com", Roles: []string{"role-mod"}, Active: true},
		Principal{Email: "plain@example.com", Roles: []string{"role-auth"}, Active: true},
	)
	revoker := &memRevoker{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := guard.New(roleStore, roles.NewResolver(roleStore), repo, revoker, logger, nil)
	handler := NewHandler(logger, NewService(repo), guard.Middleware{Guard: g, Logger: logger})

	router := chi.NewRouter()
	router.Route("/principals", handler.MountRoutes)
	return router, repo, revoker
}

func asPrincipal(r *http.Request, principalID string) *http.Request {
	sess := &shared.Session{ID: "sess-1"}
	sess.SetPrincipal(principalID)
	return r.WithContext(shared.ContextWithSession(r.Context(), sess))
}

func TestMountedRoutesBlockModifyingSuperTarget(t *testing.T) {
	// Even a role-free field change on the super principal is rejected for
	// everyone but the super principal itself.
	router, repo, _ := newHandlerFixture()

	req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/principals/p-1", strings.NewReader(`{"active":false}`)), "p-3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	stored, err := repo.Get(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, stored.Active, "super principal must remain untouched")
}

func TestMountedRoutesBlockRoleGrantWithoutScope(t *testing.T) {
	router, repo, revoker := newHandlerFixture()

	req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/principals/p-2", strings.NewReader(`{"roles":["role-super"]}`)), "p-3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	stored, err := repo.Get(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"role-mod"}, stored.Roles)
	assert.Empty(t, revoker.disavows)
}

func TestMountedRoutesRejectTypeMismatchedBody(t *testing.T) {
	// The roles sniff must fail closed on a body it cannot inspect.
	router, repo, _ := newHandlerFixture()

	req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/principals/p-2", strings.NewReader(`{"id":123,"roles":["role-super"]}`)), "p-3")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	stored, err := repo.Get(context.Background(), "p-2")
	require.NoError(t, err)
	assert.Equal(t, []string{"role-mod"}, stored.Roles)
}

func TestMountedRoutesAllowAuthorizedAssignment(t *testing.T) {
	router, repo, revoker := newHandlerFixture()

	req := asPrincipal(httptest.NewRequest(http.MethodPatch, "/principals/p-3", strings.NewReader(`{"roles":["role-mod"]}`)), "p-2")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	stored, err := repo.Get(context.Background(), "p-3")
	require.NoError(t, err)
	assert.Equal(t, []string{"role-mod"}, stored.Roles)
	assert.Equal(t, []string{"p-3"}, revoker.disavows, "role change revokes the target's sessions")
}

func TestMountedRoutesAllowReads(t *testing.T) {
	router, _, _ := newHandlerFixture()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, asPrincipal(httptest.NewRequest(http.MethodGet, "/principals/p-1", nil), "p-3"))

	require.Equal(t, http.StatusOK, rec.Code)
	var out principalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "root@example.com", out.Email)
}

func TestMountedRoutesRequireSession(t *testing.T) {
	router, _, _ := newHandlerFixture()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/principals/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
