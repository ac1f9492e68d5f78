package principals

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// RepositoryPort defines data access methods for principals.
type RepositoryPort interface {
	Insert(ctx context.Context, p Principal) (Principal, error)
	Get(ctx context.Context, id string) (Principal, error)
	FindByEmail(ctx context.Context, email string) (Principal, error)
	Roles(ctx context.Context, id string) ([]string, error)
	Update(ctx context.Context, p Principal) (Principal, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]Principal, error)
}

// BeforeInsert mutates an about-to-be-persisted principal. Mutators run
// synchronously, in registration order, before the insert commits.
type BeforeInsert func(*Principal)

// Service handles principal business logic and exposes the creation
// pipeline's pre-persist hook point.
type Service struct {
	repo         RepositoryPort
	beforeInsert []BeforeInsert
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// OnBeforeInsert registers a pre-persist mutator. Registration happens
// during startup wiring, before any request is served.
func (s *Service) OnBeforeInsert(fn BeforeInsert) {
	s.beforeInsert = append(s.beforeInsert, fn)
}

// CreateInput carries the fields accepted when creating a principal.
type CreateInput struct {
	Email    string
	Name     string
	AuthType string
	Password string
	Roles    []string
}

// Create runs the pre-persist mutators and inserts the principal.
func (s *Service) Create(ctx context.Context, in CreateInput) (Principal, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		return Principal{}, fmt.Errorf("principals: email required")
	}

	p := Principal{
		Email:    email,
		Name:     strings.TrimSpace(in.Name),
		AuthType: in.AuthType,
		Roles:    in.Roles,
		Active:   true,
	}
	if in.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return Principal{}, err
		}
		p.PasswordHash = string(hash)
	}

	for _, fn := range s.beforeInsert {
		fn(&p)
	}
	if p.Roles == nil {
		p.Roles = []string{}
	}

	return s.repo.Insert(ctx, p)
}

// Get fetches a principal by id.
func (s *Service) Get(ctx context.Context, id string) (Principal, error) {
	return s.repo.Get(ctx, id)
}

// List returns all principals.
func (s *Service) List(ctx context.Context) ([]Principal, error) {
	return s.repo.List(ctx)
}

// UpdateInput carries the fields accepted when updating a principal. Nil
// slices and empty strings leave the stored value untouched, except Roles
// which replaces the list whenever present.
type UpdateInput struct {
	Email    string
	Name     string
	AuthType string
	Active   *bool
	Roles    []string
}

// Update applies the input on top of the stored record and persists it.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Principal, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Principal{}, err
	}
	if in.Email != "" {
		p.Email = strings.ToLower(strings.TrimSpace(in.Email))
	}
	if in.Name != "" {
		p.Name = strings.TrimSpace(in.Name)
	}
	if in.AuthType != "" {
		p.AuthType = in.AuthType
	}
	if in.Active != nil {
		p.Active = *in.Active
	}
	if in.Roles != nil {
		p.Roles = in.Roles
	}
	return s.repo.Update(ctx, p)
}

// Delete removes a principal.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}

// Roles returns only the role ids of a principal.
func (s *Service) Roles(ctx context.Context, id string) ([]string, error) {
	return s.repo.Roles(ctx, id)
}
