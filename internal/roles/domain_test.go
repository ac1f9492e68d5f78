package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScopeSetAllows(t *testing.T) {
	set := ScopeSet{"read:profile", "assign:roles"}

	assert.True(t, set.Allows("read:profile"))
	assert.True(t, set.Allows("assign:roles"))
	assert.False(t, set.Allows("write:profile"))
	assert.False(t, set.Allows("read"))
	assert.False(t, set.Allows(""))
}

func TestScopeSetAllowsWildcards(t *testing.T) {
	assert.True(t, ScopeSet{"*:*"}.Allows("assign:roles"))
	assert.True(t, ScopeSet{"read:*"}.Allows("read:principals"))
	assert.True(t, ScopeSet{"*:roles"}.Allows("assign:roles"))
	assert.False(t, ScopeSet{"read:*"}.Allows("write:principals"))
	assert.False(t, ScopeSet{"*:roles"}.Allows("assign:principals"))
}

func TestScopeSetContains(t *testing.T) {
	set := ScopeSet{"*:*", "read:profile"}

	assert.True(t, set.Contains("read:profile"))
	// Contains is verbatim, no wildcard expansion.
	assert.False(t, set.Contains("read:anything"))
}

func TestRoleIsSuper(t *testing.T) {
	assert.True(t, Role{Scopes: []string{"*:*"}}.IsSuper())
	assert.False(t, Role{Scopes: []string{"*:*", "read:profile"}}.IsSuper())
	assert.False(t, Role{Scopes: []string{"read:profile"}}.IsSuper())
	assert.False(t, Role{}.IsSuper())
}
