package service

import (
	"context"
	"fmt"

	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/role/domain"
	"transapp-auth/internal/store"
)

// Resolver derives role tiers and permissions from role assignments.
type Resolver struct{}

// NewResolver returns a Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// ResolveRole returns the highest role id assigned to the identity, or 0 when none.
func (r *Resolver) ResolveRole(ctx context.Context, tx store.Tx, identityID string) (int, error) {
	id, err := tx.Roles().MaxRoleID(ctx, identityID)
	if err != nil {
		return 0, fmt.Errorf("role: resolve: %w", err)
	}
	return id, nil
}

// Permissions returns the union of permissions granted by the identity's roles.
func (r *Resolver) Permissions(ctx context.Context, tx store.Tx, identityID string) ([]string, error) {
	perms, err := tx.Roles().ListPermissions(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("role: permissions: %w", err)
	}
	return perms, nil
}

// AssignJoinRoles assigns the requested joinable role plus the default roles.
// An unknown requested role is malformed input; a default role missing from
// the catalog is a server-side configuration fault.
func (r *Resolver) AssignJoinRoles(ctx context.Context, tx store.Tx, identityID, requested string) error {
	if !domain.JoinableRoles[requested] {
		return fmt.Errorf("role: %w: role %q cannot be requested", authdomain.ErrMalformedInput, requested)
	}
	names := append([]string{requested}, domain.DefaultJoinRoles...)
	for _, name := range names {
		role, err := tx.Roles().GetByName(ctx, name)
		if err != nil {
			return fmt.Errorf("role: lookup %s: %w", name, err)
		}
		if role == nil {
			return fmt.Errorf("role: %s is not seeded", name)
		}
		if err := tx.Roles().Assign(ctx, identityID, role.ID); err != nil {
			return fmt.Errorf("role: assign %s: %w", name, err)
		}
	}
	return nil
}
