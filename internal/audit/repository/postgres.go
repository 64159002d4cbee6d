package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/audit/domain"
	"transapp-auth/internal/db"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns an audit log repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	var identityID *string
	if a.IdentityID != "" {
		identityID = &a.IdentityID
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, identity_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, a.ID, identityID, a.Action, a.Resource, a.Metadata, a.CreatedAt)
	return err
}

// ListByIdentity returns audit logs for the identity, paginated by limit and offset.
// Returns (nil, error) only on database errors.
func (r *PostgresRepository) ListByIdentity(ctx context.Context, identityID string, limit, offset int32) ([]*domain.AuditLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, COALESCE(identity_id, ''), action, resource, metadata, created_at
		FROM audit_logs WHERE identity_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3
	`, identityID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.AuditLog, error) {
		var a domain.AuditLog
		err := row.Scan(&a.ID, &a.IdentityID, &a.Action, &a.Resource, &a.Metadata, &a.CreatedAt)
		return &a, err
	})
}
