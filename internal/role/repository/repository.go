package repository

import (
	"context"

	"transapp-auth/internal/role/domain"
)

// Repository defines persistence for roles and their assignments.
type Repository interface {
	// MaxRoleID returns the highest role id assigned to the identity, or 0 when none.
	MaxRoleID(ctx context.Context, identityID string) (int, error)
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	Assign(ctx context.Context, identityID string, roleID int) error
	// ListPermissions returns the distinct permissions granted by all roles of the identity.
	ListPermissions(ctx context.Context, identityID string) ([]string, error)
	// UpsertRole creates or replaces the role and its permission set.
	UpsertRole(ctx context.Context, r *domain.Role) error
}
