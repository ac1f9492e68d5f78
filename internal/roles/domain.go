package roles

import (
	"errors"
	"strings"
	"time"
)

// SuperScope is the scope granting unrestricted access. A role whose scope
// list is exactly [SuperScope] is the distinguished super role.
const SuperScope = "*:*"

// ScopeAssignRoles must be held by non-super requesters that change role
// assignments on principals.
const ScopeAssignRoles = "assign:roles"

var (
	// ErrRoleNotFound indicates a role lookup by id or short name yielded
	// nothing. It signals a data or configuration problem and is never
	// swallowed.
	ErrRoleNotFound = errors.New("roles: role not found")

	// ErrInheritanceCycle indicates the extends chain loops back on itself.
	ErrInheritanceCycle = errors.New("roles: inheritance cycle")

	// ErrConflict indicates the store rejected a write because of its
	// short-name uniqueness constraint. Expected during concurrent
	// provisioning.
	ErrConflict = errors.New("roles: conflict")
)

// Role is a persisted role record. ShortName is the stable key used by
// configuration and inheritance; the store enforces its uniqueness.
type Role struct {
	ID          string
	ShortName   string
	DisplayName string
	Extends     string
	Scopes      []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsSuper reports whether the role is the distinguished super role.
func (r Role) IsSuper() bool {
	return len(r.Scopes) == 1 && r.Scopes[0] == SuperScope
}

// RoleDefinition mirrors one entry of the declarative role catalog.
type RoleDefinition struct {
	ShortName   string   `yaml:"shortName"`
	DisplayName string   `yaml:"displayName"`
	Extends     string   `yaml:"extends,omitempty"`
	Scopes      []string `yaml:"scopes"`
}

// ScopeSet is a flattened list of action:resource scope strings. Repeats are
// allowed; checks are membership tests so duplicates are harmless.
type ScopeSet []string

// Allows reports whether the set grants the given action:resource scope,
// honouring "*" wildcards on either side of a held scope.
func (s ScopeSet) Allows(scope string) bool {
	action, resource, ok := splitScope(scope)
	if !ok {
		return false
	}
	for _, held := range s {
		ha, hr, ok := splitScope(held)
		if !ok {
			continue
		}
		if (ha == "*" || ha == action) && (hr == "*" || hr == resource) {
			return true
		}
	}
	return false
}

// Contains reports whether the set holds the scope verbatim, without
// wildcard expansion.
func (s ScopeSet) Contains(scope string) bool {
	for _, held := range s {
		if held == scope {
			return true
		}
	}
	return false
}

func splitScope(scope string) (action, resource string, ok bool) {
	action, resource, ok = strings.Cut(scope, ":")
	if !ok || action == "" || resource == "" {
		return "", "", false
	}
	return action, resource, true
}
