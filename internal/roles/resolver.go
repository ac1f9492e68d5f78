package roles

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Resolver flattens role inheritance chains into effective scope lists.
//
// Every call fetches a fresh snapshot of the role collection; there is no
// cache to invalidate, at the cost of a full fetch per call. Two concurrent
// calls may observe different snapshots.
type Resolver struct {
	store Store
}

// NewResolver constructs a Resolver.
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// ResolveScopes walks the extends chain starting at the referenced role and
// returns the concatenation of scopes in child-to-root order. Duplicates are
// kept. ref may be a plain id string or any value that stringifies to one.
//
// An unknown starting id fails with ErrRoleNotFound; a chain that revisits a
// role fails with ErrInheritanceCycle. A missing parent ends the walk.
func (r *Resolver) ResolveScopes(ctx context.Context, ref any) (ScopeSet, error) {
	id := refString(ref)

	all, err := r.store.Find(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Role, len(all))
	byShortName := make(map[string]*Role, len(all))
	for i := range all {
		byID[all[i].ID] = &all[i]
		byShortName[all[i].ShortName] = &all[i]
	}

	current, ok := byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %q", ErrRoleNotFound, id)
	}

	var scopes ScopeSet
	visited := make(map[string]struct{})
	for current != nil {
		if _, seen := visited[current.ShortName]; seen {
			return nil, fmt.Errorf("%w: at %q", ErrInheritanceCycle, current.ShortName)
		}
		visited[current.ShortName] = struct{}{}
		scopes = append(scopes, current.Scopes...)
		if current.Extends == "" {
			break
		}
		current = byShortName[current.Extends]
	}
	return scopes, nil
}

// ResolveIDs maps role short names to ids, preserving input order. Lookups
// run concurrently; any missing name fails the whole call with
// ErrRoleNotFound.
func (r *Resolver) ResolveIDs(ctx context.Context, shortNames []string) ([]string, error) {
	if len(shortNames) == 0 {
		return []string{}, nil
	}

	ids := make([]string, len(shortNames))
	g, ctx := errgroup.WithContext(ctx)
	for i, name := range shortNames {
		g.Go(func() error {
			matches, err := r.store.Find(ctx, Filter{ShortName: name})
			if err != nil {
				return err
			}
			if len(matches) == 0 {
				return fmt.Errorf("%w: short name %q", ErrRoleNotFound, name)
			}
			ids[i] = matches[0].ID
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

func refString(ref any) string {
	switch v := ref.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(ref)
	}
}
