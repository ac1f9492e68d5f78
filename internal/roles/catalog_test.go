package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCatalog(t *testing.T) {
	data := []byte(`
roleDefinitions:
  - shortName: superadmin
    displayName: Super Administrator
    scopes: ["*:*"]
  - shortName: moderator
    displayName: Moderator
    extends: authuser
    scopes:
      - assign:roles
  - shortName: authuser
    displayName: Authenticated User
    scopes:
      - read:profile
defaultRoles:
  - authuser
defaultRolesForAuthTypes:
  saml:
    - authuser
    - moderator
`)

	catalog, err := ParseCatalog(data)
	require.NoError(t, err)

	require.Len(t, catalog.RoleDefinitions, 3)
	assert.Equal(t, "superadmin", catalog.RoleDefinitions[0].ShortName)
	assert.Equal(t, []string{"*:*"}, catalog.RoleDefinitions[0].Scopes)
	assert.Equal(t, "authuser", catalog.RoleDefinitions[1].Extends)
	assert.Equal(t, []string{"authuser"}, catalog.DefaultRoles)
	assert.Equal(t, []string{"authuser", "moderator"}, catalog.DefaultRolesForAuthTypes["saml"])
	assert.True(t, catalog.HasDefaults())
}

func TestParseCatalogValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{
			name: "missing short name",
			data: `
roleDefinitions:
  - displayName: Nameless
    scopes: ["a:a"]
`,
		},
		{
			name: "missing display name",
			data: `
roleDefinitions:
  - shortName: nameless
    scopes: ["a:a"]
`,
		},
		{
			name: "no scopes",
			data: `
roleDefinitions:
  - shortName: scopeless
    displayName: Scopeless
`,
		},
		{
			name: "malformed yaml",
			data: "roleDefinitions: [",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.data))
			assert.Error(t, err)
		})
	}
}

func TestCatalogHasDefaults(t *testing.T) {
	assert.False(t, Catalog{}.HasDefaults())
	assert.True(t, Catalog{DefaultRoles: []string{"authuser"}}.HasDefaults())
	assert.True(t, Catalog{DefaultRolesForAuthTypes: map[string][]string{"saml": {"authuser"}}}.HasDefaults())
}
