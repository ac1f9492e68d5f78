package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Filter narrows a Find call. Zero-value fields are ignored; the zero Filter
// returns the full collection.
type Filter struct {
	ID        string
	ShortName string
	// SuperOnly restricts results to roles whose scope list is exactly
	// [SuperScope].
	SuperOnly bool
}

// Store is the persistence capability the engine requires. Implementations
// must enforce short-name uniqueness and signal violations as ErrConflict.
type Store interface {
	Find(ctx context.Context, f Filter) ([]Role, error)
	Insert(ctx context.Context, role Role) (Role, error)
	Replace(ctx context.Context, id string, role Role) error
}

// Repository provides PostgreSQL backed persistence for roles.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const roleColumns = `id, short_name, display_name, COALESCE(extends, ''), scopes, created_at, updated_at`

// Find returns roles matching the filter, ordered by short name.
func (r *Repository) Find(ctx context.Context, f Filter) ([]Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles`
	var (
		conds []string
		args  []any
	)
	if f.ID != "" {
		args = append(args, f.ID)
		conds = append(conds, fmt.Sprintf("id = $%d", len(args)))
	}
	if f.ShortName != "" {
		args = append(args, f.ShortName)
		conds = append(conds, fmt.Sprintf("short_name = $%d", len(args)))
	}
	if f.SuperOnly {
		args = append(args, []string{SuperScope})
		conds = append(conds, fmt.Sprintf("scopes = $%d", len(args)))
	}
	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY short_name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.ShortName, &role.DisplayName, &role.Extends, &role.Scopes, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert persists a new role. The store assigns the id.
func (r *Repository) Insert(ctx context.Context, role Role) (Role, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO roles (short_name, display_name, extends, scopes)
		 VALUES ($1, $2, NULLIF($3, ''), $4)
		 RETURNING `+roleColumns,
		role.ShortName, role.DisplayName, role.Extends, role.Scopes)
	var created Role
	if err := row.Scan(&created.ID, &created.ShortName, &created.DisplayName, &created.Extends, &created.Scopes, &created.CreatedAt, &created.UpdatedAt); err != nil {
		return Role{}, classify(err)
	}
	return created, nil
}

// Replace overwrites the full document identified by id.
func (r *Repository) Replace(ctx context.Context, id string, role Role) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE roles
		 SET short_name = $2, display_name = $3, extends = NULLIF($4, ''), scopes = $5, updated_at = now()
		 WHERE id = $1`,
		id, role.ShortName, role.DisplayName, role.Extends, role.Scopes)
	if err != nil {
		return classify(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRoleNotFound
	}
	return nil
}

// classify maps unique violations to ErrConflict so callers can treat racing
// writes as benign.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrRoleNotFound
	}
	return err
}
