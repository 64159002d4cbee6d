package repository

import (
	"context"

	"transapp-auth/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByIdentity returns the identity's audit logs, newest first.
	ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*domain.AuditLog, error)
}
