package repository

import (
	"context"

	"transapp-auth/internal/sessiontoken/domain"
)

// Repository defines persistence for session tokens. Only token hashes are stored.
type Repository interface {
	Create(ctx context.Context, t *domain.SessionToken) error
	// DeleteAllByIdentity removes every session token of the identity and
	// returns how many were removed.
	DeleteAllByIdentity(ctx context.Context, identityID string) (int, error)
	// GetByHash returns the token with the given hash, or nil if not found.
	GetByHash(ctx context.Context, tokenHash string) (*domain.SessionToken, error)
	CountByIdentity(ctx context.Context, identityID string) (int, error)
}
