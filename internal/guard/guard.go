// Package guard enforces the role-assignment policy: only a super user may
// grant, revoke, or otherwise touch the distinguished super role.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"github.com/rolegate/rolegate/internal/roles"
	"github.com/rolegate/rolegate/internal/shared"
)

// ErrUnauthorized is raised on any failed permission or ownership check. It
// is terminal for the request.
var ErrUnauthorized = errors.New("guard: unauthorized")

// Denial reasons, kept machine-readable for audit logging.
const (
	ReasonAssignRole  = "assign role"
	ReasonAssignSuper = "assign superuser"
	ReasonModifySuper = "modify superuser"
)

// DeniedError carries the audit context of a rejected request.
type DeniedError struct {
	RequesterID string
	Reason      string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("guard: unauthorized: %s (requester %s)", e.Reason, e.RequesterID)
}

func (e *DeniedError) Unwrap() error { return ErrUnauthorized }

// Phase marks where in the request lifecycle an interceptor runs. The guard
// engages only during pre-commit validation, never during the commit itself.
type Phase string

const (
	PhaseValidate Phase = "validate"
	PhaseCommit   Phase = "commit"
)

// RoleAssignmentRequest is the slice of an in-flight mutating request the
// guard needs to decide on a role assignment.
type RoleAssignmentRequest struct {
	Phase  Phase
	Method string

	RequesterID string

	// TargetParamID is the {id} route parameter; BodyID is the fallback id
	// carried in the request body.
	TargetParamID string
	BodyID        string

	// Roles holds the role ids being assigned. RolesPresent distinguishes an
	// absent roles field from an explicit empty list.
	Roles        []string
	RolesPresent bool
}

// TargetID returns the route-param id, falling back to the body id.
func (r RoleAssignmentRequest) TargetID() string {
	if r.TargetParamID != "" {
		return r.TargetParamID
	}
	return r.BodyID
}

// AccessRequest is the slice of a request evaluated by the generic access
// check.
type AccessRequest struct {
	Modifying   bool
	RequesterID string
	TargetID    string
}

// ScopeResolver flattens a role's inheritance chain into scopes.
type ScopeResolver interface {
	ResolveScopes(ctx context.Context, ref any) (roles.ScopeSet, error)
}

// RoleLister returns only the role id list of a principal.
type RoleLister interface {
	Roles(ctx context.Context, principalID string) ([]string, error)
}

// SessionRevoker drops every live session of a principal.
type SessionRevoker interface {
	Disavow(ctx context.Context, principalID string) error
}

// DenialMetrics counts rejected requests by reason.
type DenialMetrics interface {
	AuthzDenial(reason string)
}

// Guard is the request-time enforcement layer. All collaborators are
// injected; the guard holds no mutable state of its own.
type Guard struct {
	store      roles.Store
	resolver   ScopeResolver
	principals RoleLister
	sessions   SessionRevoker
	logger     *slog.Logger
	metrics    DenialMetrics
}

// New constructs a Guard. metrics may be nil.
func New(store roles.Store, resolver ScopeResolver, lister RoleLister, sessions SessionRevoker, logger *slog.Logger, metrics DenialMetrics) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		store:      store,
		resolver:   resolver,
		principals: lister,
		sessions:   sessions,
		logger:     logger,
		metrics:    metrics,
	}
}

// SuperRoleID returns the id of the role whose scopes are exactly ["*:*"].
// With no such role it fails with roles.ErrRoleNotFound. Should more than
// one exist the first match wins and a warning is logged.
func (g *Guard) SuperRoleID(ctx context.Context) (string, error) {
	matches, err := g.store.Find(ctx, roles.Filter{SuperOnly: true})
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("%w: no super role", roles.ErrRoleNotFound)
	}
	if len(matches) > 1 {
		g.logger.Warn("multiple super roles found, using first match",
			slog.String("role_id", matches[0].ID),
			slog.Int("count", len(matches)))
	}
	return matches[0].ID, nil
}

// IsTargetSuper reports whether the principal's role list is exactly the
// single super role. A principal with zero or several roles is never a
// super target, even when one of them is the super role.
func (g *Guard) IsTargetSuper(ctx context.Context, principalID string) (bool, error) {
	roleIDs, err := g.principals.Roles(ctx, principalID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if len(roleIDs) != 1 {
		return false, nil
	}
	superID, err := g.SuperRoleID(ctx)
	if err != nil {
		return false, err
	}
	return roleIDs[0] == superID, nil
}

// AuthorizeRoleAssignment is the pre-commit interceptor for mutating
// requests that touch role assignment. It engages only during the validate
// phase and only when the request deletes a principal or carries a roles
// field; otherwise it is a no-op.
//
// A non-super requester must hold assign:roles, must not be assigning the
// super role, and must not be touching a super target. Each failed check
// rejects immediately with ErrUnauthorized. After the checks, any
// non-creation request revokes the target principal's sessions; a freshly
// created principal has no session to revoke.
func (g *Guard) AuthorizeRoleAssignment(ctx context.Context, req RoleAssignmentRequest) error {
	if req.Phase != PhaseValidate {
		return nil
	}
	deleting := req.Method == http.MethodDelete
	if !deleting && !req.RolesPresent {
		return nil
	}

	requesterSuper, err := g.IsTargetSuper(ctx, req.RequesterID)
	if err != nil {
		return err
	}

	if !requesterSuper {
		scopes, err := g.requesterScopes(ctx, req.RequesterID)
		if err != nil {
			return err
		}
		if !scopes.Allows(roles.ScopeAssignRoles) {
			return g.deny(req.RequesterID, ReasonAssignRole)
		}

		superID, err := g.SuperRoleID(ctx)
		if err != nil {
			return err
		}
		if slices.Contains(req.Roles, superID) {
			return g.deny(req.RequesterID, ReasonAssignSuper)
		}

		if target := req.TargetID(); target != "" {
			targetSuper, err := g.IsTargetSuper(ctx, target)
			if err != nil {
				return err
			}
			if targetSuper {
				return g.deny(req.RequesterID, ReasonModifySuper)
			}
		}
	}

	if req.Method != http.MethodPost {
		if target := req.TargetID(); target != "" {
			if err := g.sessions.Disavow(ctx, target); err != nil {
				g.logger.Warn("session invalidation failed",
					slog.String("principal_id", target),
					slog.String("error", err.Error()))
			}
		}
	}
	return nil
}

// CheckAccess is the defense-in-depth interceptor for the generic access
// phase. Non-modifying requests are allowed without querying the target;
// modifying requests aimed at a super target are rejected.
func (g *Guard) CheckAccess(ctx context.Context, req AccessRequest) error {
	if !req.Modifying || req.TargetID == "" {
		return nil
	}
	targetSuper, err := g.IsTargetSuper(ctx, req.TargetID)
	if err != nil {
		return err
	}
	if targetSuper {
		return g.deny(req.RequesterID, ReasonModifySuper)
	}
	return nil
}

// requesterScopes unions the resolved scope chains of every role the
// requester holds.
func (g *Guard) requesterScopes(ctx context.Context, requesterID string) (roles.ScopeSet, error) {
	roleIDs, err := g.principals.Roles(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	var all roles.ScopeSet
	for _, id := range roleIDs {
		scopes, err := g.resolver.ResolveScopes(ctx, id)
		if err != nil {
			return nil, err
		}
		all = append(all, scopes...)
	}
	return all, nil
}

func (g *Guard) deny(requesterID, reason string) error {
	g.logger.Error("authorization denied",
		slog.String("requester_id", requesterID),
		slog.String("reason", reason))
	if g.metrics != nil {
		g.metrics.AuthzDenial(reason)
	}
	return &DeniedError{RequesterID: requesterID, Reason: reason}
}
