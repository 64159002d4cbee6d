package repository

import (
	"context"
	"time"

	"transapp-auth/internal/device/domain"
)

// Repository defines persistence for devices. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByIdentityNameFingerprint(ctx context.Context, identityID, name, fingerprint string) (*domain.Device, error)
	CountByIdentity(ctx context.Context, identityID string) (int, error)
	ListByIdentity(ctx context.Context, identityID string) ([]*domain.Device, error)
	// Latest returns the most recently updated device of the identity.
	Latest(ctx context.Context, identityID string) (*domain.Device, error)
	Create(ctx context.Context, d *domain.Device) error
	UpdatePushAddress(ctx context.Context, id, pushAddress string, at time.Time) error
	Delete(ctx context.Context, id string) error
}
