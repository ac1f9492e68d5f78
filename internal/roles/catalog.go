package roles

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the declarative role configuration consumed at startup.
type Catalog struct {
	// RoleDefinitions is the full set of roles to reconcile into the store.
	RoleDefinitions []RoleDefinition `yaml:"roleDefinitions"`

	// DefaultRoles lists short names applied to any new principal whose auth
	// type has no specific default list.
	DefaultRoles []string `yaml:"defaultRoles"`

	// DefaultRolesForAuthTypes maps an auth-type string to the short names
	// applied to new principals of that type.
	DefaultRolesForAuthTypes map[string][]string `yaml:"defaultRolesForAuthTypes"`
}

// HasDefaults reports whether any default-role configuration is present.
func (c Catalog) HasDefaults() bool {
	return len(c.DefaultRoles) > 0 || len(c.DefaultRolesForAuthTypes) > 0
}

// LoadCatalog reads and parses the role catalog file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("roles: read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML role catalog.
func ParseCatalog(data []byte) (Catalog, error) {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return Catalog{}, fmt.Errorf("roles: parse catalog: %w", err)
	}
	for _, def := range catalog.RoleDefinitions {
		if def.ShortName == "" {
			return Catalog{}, fmt.Errorf("roles: catalog definition missing shortName")
		}
		if def.DisplayName == "" {
			return Catalog{}, fmt.Errorf("roles: catalog definition %q missing displayName", def.ShortName)
		}
		if len(def.Scopes) == 0 {
			return Catalog{}, fmt.Errorf("roles: catalog definition %q has no scopes", def.ShortName)
		}
	}
	return catalog, nil
}
