package principals

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for principals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const principalColumns = `id, email, name, auth_type, roles, password_hash, active, created_at, updated_at`

// Insert persists a new principal. The store assigns the id.
func (r *Repository) Insert(ctx context.Context, p Principal) (Principal, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO principals (email, name, auth_type, roles, password_hash, active)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+principalColumns,
		p.Email, p.Name, p.AuthType, p.Roles, p.PasswordHash, p.Active)
	return scanPrincipal(row)
}

// Get fetches a principal by id.
func (r *Repository) Get(ctx context.Context, id string) (Principal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE id = $1`, id)
	return scanPrincipal(row)
}

// FindByEmail fetches a principal by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (Principal, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE email = $1`, email)
	return scanPrincipal(row)
}

// Roles returns only the role id list of a principal. The projection keeps
// authorization lookups from dragging the full record around.
func (r *Repository) Roles(ctx context.Context, id string) ([]string, error) {
	var roleIDs []string
	err := r.pool.QueryRow(ctx, `SELECT roles FROM principals WHERE id = $1`, id).Scan(&roleIDs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: id %q", ErrNotFound, id)
		}
		return nil, err
	}
	return roleIDs, nil
}

// Update replaces the mutable fields of a principal.
func (r *Repository) Update(ctx context.Context, p Principal) (Principal, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE principals
		 SET email = $2, name = $3, auth_type = $4, roles = $5, active = $6, updated_at = now()
		 WHERE id = $1
		 RETURNING `+principalColumns,
		p.ID, p.Email, p.Name, p.AuthType, p.Roles, p.Active)
	return scanPrincipal(row)
}

// Delete removes a principal. Returns ErrNotFound when nothing was deleted.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM principals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all principals ordered by email.
func (r *Repository) List(ctx context.Context) ([]Principal, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+principalColumns+` FROM principals ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Principal
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrincipal(row rowScanner) (Principal, error) {
	var p Principal
	err := row.Scan(&p.ID, &p.Email, &p.Name, &p.AuthType, &p.Roles, &p.PasswordHash, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Principal{}, ErrDuplicate
		}
		return Principal{}, err
	}
	return p, nil
}
