package repository

import (
	"context"
	"errors"
	"time"

	"transapp-auth/internal/identity/domain"
)

// ErrDuplicateExternalID is returned by Create when the external identifier is already taken.
var ErrDuplicateExternalID = errors.New("external id already registered")

// Repository defines persistence for identities. Getters return (nil, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Identity, error)
	// GetByExternalID matches regardless of the active flag.
	GetByExternalID(ctx context.Context, externalID string) (*domain.Identity, error)
	GetActiveByExternalID(ctx context.Context, externalID string) (*domain.Identity, error)
	GetActiveByIdentityToken(ctx context.Context, token string) (*domain.Identity, error)
	// LockByID loads the identity and holds a row lock until the surrounding
	// transaction ends. Per-identity mutations serialize on this lock.
	LockByID(ctx context.Context, id string) (*domain.Identity, error)
	// CountByCarNo counts identities of any state registered with carNo.
	CountByCarNo(ctx context.Context, carNo string) (int, error)
	Create(ctx context.Context, i *domain.Identity) error
	UpdatePasswordHash(ctx context.Context, id, hash string, at time.Time) error
	UpdateProfile(ctx context.Context, id string, p domain.Profile, at time.Time) error
	SetActive(ctx context.Context, id string, active bool, at time.Time) error
	Delete(ctx context.Context, id string) error
}
