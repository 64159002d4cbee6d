package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/db"
	"transapp-auth/internal/role/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a role repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// MaxRoleID returns the highest assigned role id, 0 when the identity has no roles.
func (r *PostgresRepository) MaxRoleID(ctx context.Context, identityID string) (int, error) {
	var id int
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(role_id), 0) FROM role_assignments WHERE identity_id = $1`, identityID).Scan(&id)
	return id, err
}

// GetByName returns the role with its permissions, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByName(ctx context.Context, name string) (*domain.Role, error) {
	var role domain.Role
	err := r.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE name = $1`, name).Scan(&role.ID, &role.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT permission FROM role_permissions WHERE role_id = $1 ORDER BY permission`, role.ID)
	if err != nil {
		return nil, err
	}
	role.Permissions, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	return &role, nil
}

// Assign binds the identity to the role. Assigning an existing pair is a no-op.
func (r *PostgresRepository) Assign(ctx context.Context, identityID string, roleID int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO role_assignments (identity_id, role_id) VALUES ($1, $2)
		ON CONFLICT (identity_id, role_id) DO NOTHING
	`, identityID, roleID)
	return err
}

// ListPermissions returns the union of permissions across the identity's roles, sorted.
func (r *PostgresRepository) ListPermissions(ctx context.Context, identityID string) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT DISTINCT rp.permission
		FROM role_assignments ra
		JOIN role_permissions rp ON rp.role_id = ra.role_id
		WHERE ra.identity_id = $1
		ORDER BY rp.permission
	`, identityID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpsertRole writes the role row and replaces its permission set.
func (r *PostgresRepository) UpsertRole(ctx context.Context, role *domain.Role) error {
	if _, err := r.db.Exec(ctx, `
		INSERT INTO roles (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, role.ID, role.Name); err != nil {
		return err
	}
	if _, err := r.db.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, role.ID); err != nil {
		return err
	}
	for _, p := range role.Permissions {
		if _, err := r.db.Exec(ctx, `
			INSERT INTO role_permissions (role_id, permission) VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, role.ID, p); err != nil {
			return err
		}
	}
	return nil
}
