package roles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chainStore() *memStore {
	return newMemStore(
		Role{ShortName: "base", DisplayName: "Base", Scopes: []string{"a:a"}},
		Role{ShortName: "mid", DisplayName: "Mid", Extends: "base", Scopes: []string{"b:b"}},
		Role{ShortName: "top", DisplayName: "Top", Extends: "mid", Scopes: []string{"c:c"}},
	)
}

func TestResolveScopesWalksChainChildToRoot(t *testing.T) {
	store := chainStore()
	resolver := NewResolver(store)

	top, ok := store.byShortName("top")
	require.True(t, ok)

	scopes, err := resolver.ResolveScopes(context.Background(), top.ID)
	require.NoError(t, err)
	assert.Equal(t, ScopeSet{"c:c", "b:b", "a:a"}, scopes)
}

type stringerRef string

func (s stringerRef) String() string { return string(s) }

func TestResolveScopesAcceptsStringerRef(t *testing.T) {
	store := chainStore()
	resolver := NewResolver(store)

	base, ok := store.byShortName("base")
	require.True(t, ok)

	scopes, err := resolver.ResolveScopes(context.Background(), stringerRef(base.ID))
	require.NoError(t, err)
	assert.Equal(t, ScopeSet{"a:a"}, scopes)
}

func TestResolveScopesUnknownID(t *testing.T) {
	resolver := NewResolver(chainStore())

	_, err := resolver.ResolveScopes(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRoleNotFound)
}

func TestResolveScopesMissingParentEndsWalk(t *testing.T) {
	store := newMemStore(
		Role{ShortName: "orphan", DisplayName: "Orphan", Extends: "gone", Scopes: []string{"x:y"}},
	)
	resolver := NewResolver(store)

	orphan, ok := store.byShortName("orphan")
	require.True(t, ok)

	scopes, err := resolver.ResolveScopes(context.Background(), orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, ScopeSet{"x:y"}, scopes)
}

func TestResolveScopesDetectsCycle(t *testing.T) {
	store := newMemStore(
		Role{ShortName: "ouro", DisplayName: "Ouro", Extends: "boros", Scopes: []string{"a:a"}},
		Role{ShortName: "boros", DisplayName: "Boros", Extends: "ouro", Scopes: []string{"b:b"}},
	)
	resolver := NewResolver(store)

	ouro, ok := store.byShortName("ouro")
	require.True(t, ok)

	_, err := resolver.ResolveScopes(context.Background(), ouro.ID)
	assert.ErrorIs(t, err, ErrInheritanceCycle)
}

func TestResolveScopesSelfCycle(t *testing.T) {
	store := newMemStore(
		Role{ShortName: "narcissus", DisplayName: "Narcissus", Extends: "narcissus", Scopes: []string{"a:a"}},
	)
	resolver := NewResolver(store)

	self, ok := store.byShortName("narcissus")
	require.True(t, ok)

	_, err := resolver.ResolveScopes(context.Background(), self.ID)
	assert.ErrorIs(t, err, ErrInheritanceCycle)
}

func TestResolveScopesKeepsDuplicates(t *testing.T) {
	store := newMemStore(
		Role{ShortName: "parent", DisplayName: "Parent", Scopes: []string{"read:docs"}},
		Role{ShortName: "child", DisplayName: "Child", Extends: "parent", Scopes: []string{"read:docs"}},
	)
	resolver := NewResolver(store)

	child, ok := store.byShortName("child")
	require.True(t, ok)

	scopes, err := resolver.ResolveScopes(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Equal(t, ScopeSet{"read:docs", "read:docs"}, scopes)
}

func TestResolveIDsEmptyInput(t *testing.T) {
	store := chainStore()
	resolver := NewResolver(store)

	ids, err := resolver.ResolveIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.Zero(t, store.findCalls, "empty input must not hit the store")
}

func TestResolveIDsPreservesOrder(t *testing.T) {
	store := chainStore()
	resolver := NewResolver(store)

	ids, err := resolver.ResolveIDs(context.Background(), []string{"top", "base", "mid"})
	require.NoError(t, err)
	require.Len(t, ids, 3)

	top, _ := store.byShortName("top")
	base, _ := store.byShortName("base")
	mid, _ := store.byShortName("mid")
	assert.Equal(t, []string{top.ID, base.ID, mid.ID}, ids)
}

func TestResolveIDsMissingName(t *testing.T) {
	resolver := NewResolver(chainStore())

	_, err := resolver.ResolveIDs(context.Background(), []string{"base", "missing"})
	assert.ErrorIs(t, err, ErrRoleNotFound)
}
