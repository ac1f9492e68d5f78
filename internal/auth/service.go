package auth

import (
	"context"

	"golang.org/x/crypto/bcrypt"

	"github.com/rolegate/rolegate/internal/principals"
	"github.com/rolegate/rolegate/internal/shared"
)

// AuthTypeLocal marks principals created through password login.
const AuthTypeLocal = "local"

// PrincipalLookup is the read capability the service needs.
type PrincipalLookup interface {
	FindByEmail(ctx context.Context, email string) (principals.Principal, error)
}

// Service wraps local-authentication business rules.
type Service struct {
	repo PrincipalLookup
}

// NewService constructs a new Service.
func NewService(repo PrincipalLookup) *Service {
	return &Service{repo: repo}
}

// Authenticate validates email/password credentials. Failures are collapsed
// into ErrInvalidCredentials so callers cannot probe which part failed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (principals.Principal, error) {
	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return principals.Principal{}, shared.ErrInvalidCredentials
	}
	if !p.Active || p.PasswordHash == "" {
		return principals.Principal{}, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return principals.Principal{}, shared.ErrInvalidCredentials
	}
	return p, nil
}
