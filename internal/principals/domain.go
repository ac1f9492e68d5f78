package principals

import (
	"errors"
	"fmt"
	"time"

	"github.com/rolegate/rolegate/internal/shared"
)

// ErrNotFound indicates the requested principal does not exist. It wraps
// shared.ErrNotFound so callers outside the package can classify it.
var ErrNotFound = fmt.Errorf("principals: %w", shared.ErrNotFound)

// ErrDuplicate indicates the email is already registered.
var ErrDuplicate = errors.New("principals: duplicate email")

// Principal is an account that can authenticate and hold roles.
type Principal struct {
	ID           string
	Email        string
	Name         string
	AuthType     string
	Roles        []string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleIDs returns the principal's role id list.
func (p *Principal) RoleIDs() []string { return p.Roles }

// SetRoleIDs replaces the principal's role id list.
func (p *Principal) SetRoleIDs(ids []string) { p.Roles = ids }

// AuthKind returns the authentication-type discriminator.
func (p *Principal) AuthKind() string { return p.AuthType }
