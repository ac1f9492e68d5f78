package roles

import "context"

// RoleCarrier is the slice of a principal record the pre-persist hook may
// touch.
type RoleCarrier interface {
	RoleIDs() []string
	SetRoleIDs(ids []string)
	AuthKind() string
}

// Assigner stamps newly created principals with default role ids. All short
// names are resolved to ids once at construction; the resolved lists are
// read-only afterwards.
type Assigner struct {
	global  []string
	perType map[string][]string
}

// NewAssigner resolves the configured global defaults and each per-auth-type
// list independently. Every configured type keeps its own resolved list.
func NewAssigner(ctx context.Context, resolver *Resolver, globalDefaults []string, perTypeDefaults map[string][]string) (*Assigner, error) {
	global, err := resolver.ResolveIDs(ctx, globalDefaults)
	if err != nil {
		return nil, err
	}

	perType := make(map[string][]string, len(perTypeDefaults))
	for authType, names := range perTypeDefaults {
		ids, err := resolver.ResolveIDs(ctx, names)
		if err != nil {
			return nil, err
		}
		perType[authType] = ids
	}

	return &Assigner{global: global, perType: perType}, nil
}

// DefaultsFor returns the role ids a new principal of the given auth type
// receives when none were supplied: the per-type list if one is configured,
// else the global list, else an empty list.
func (a *Assigner) DefaultsFor(authType string) []string {
	if ids, ok := a.perType[authType]; ok {
		return append([]string(nil), ids...)
	}
	return append([]string{}, a.global...)
}

// Hook returns the synchronous pre-persist mutator to install on the
// principal-creation pipeline. Principals that already carry roles are left
// untouched.
func (a *Assigner) Hook() func(RoleCarrier) {
	return func(p RoleCarrier) {
		if len(p.RoleIDs()) > 0 {
			return
		}
		p.SetRoleIDs(a.DefaultsFor(p.AuthKind()))
	}
}
