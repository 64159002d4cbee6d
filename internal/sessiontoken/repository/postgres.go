package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"transapp-auth/internal/db"
	"transapp-auth/internal/sessiontoken/domain"
)

type PostgresRepository struct {
	db db.DBTX
}

// NewPostgresRepository returns a session token repository that uses the given pool or transaction.
func NewPostgresRepository(conn db.DBTX) *PostgresRepository {
	return &PostgresRepository{db: conn}
}

// Create persists the token row. The token must have ID and TokenHash set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.SessionToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_tokens (id, identity_id, token_hash, created_at) VALUES ($1, $2, $3, $4)
	`, t.ID, t.IdentityID, t.TokenHash, t.CreatedAt)
	return err
}

// DeleteAllByIdentity removes all session tokens of the identity.
func (r *PostgresRepository) DeleteAllByIdentity(ctx context.Context, identityID string) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM session_tokens WHERE identity_id = $1`, identityID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// GetByHash returns the token for tokenHash, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.SessionToken, error) {
	var t domain.SessionToken
	err := r.db.QueryRow(ctx, `
		SELECT id, identity_id, token_hash, created_at FROM session_tokens WHERE token_hash = $1
	`, tokenHash).Scan(&t.ID, &t.IdentityID, &t.TokenHash, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountByIdentity returns the number of stored session tokens for the identity.
func (r *PostgresRepository) CountByIdentity(ctx context.Context, identityID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM session_tokens WHERE identity_id = $1`, identityID).Scan(&n)
	return n, err
}
