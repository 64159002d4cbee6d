package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/device/domain"
	"transapp-auth/internal/security"
	"transapp-auth/internal/store"
)

// LimitProvider returns the current per-identity device cap. Implementations
// must read the value fresh on every call.
type LimitProvider interface {
	DeviceLimit(ctx context.Context, tx store.Tx) (int, error)
}

// SessionInvalidator drops every session token of an identity.
type SessionInvalidator interface {
	InvalidateSessionTokens(ctx context.Context, tx store.Tx, identityID string) error
}

// Registry identifies, registers, and removes the devices bound to an identity.
// Raw client device identifiers are hashed before every compare or write.
type Registry struct {
	limits   LimitProvider
	sessions SessionInvalidator
	now      func() time.Time
}

// NewRegistry returns a Registry that enforces limits and invalidates sessions through sessions on removal.
func NewRegistry(limits LimitProvider, sessions SessionInvalidator) *Registry {
	return &Registry{limits: limits, sessions: sessions, now: time.Now}
}

// Resolve returns the identity's device matching both name and fingerprint.
// Returns ErrDeviceNotFound when there is no exact match.
func (r *Registry) Resolve(ctx context.Context, tx store.Tx, identityID, rawFingerprint, name string) (*domain.Device, error) {
	if strings.TrimSpace(rawFingerprint) == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("device: %w: name and device id are required", authdomain.ErrMalformedInput)
	}
	d, err := tx.Devices().GetByIdentityNameFingerprint(ctx, identityID, name, security.HashOneWay(rawFingerprint))
	if err != nil {
		return nil, fmt.Errorf("device: resolve: %w", err)
	}
	if d == nil {
		return nil, authdomain.ErrDeviceNotFound
	}
	return d, nil
}

// Register binds a new device to the identity. The identity row is locked so
// concurrent registrations cannot both pass the capacity check. Registering a
// (name, fingerprint) pair that already exists returns the existing device.
func (r *Registry) Register(ctx context.Context, tx store.Tx, identityID, name, rawFingerprint, pushAddress string) (*domain.Device, error) {
	if strings.TrimSpace(pushAddress) == "" {
		return nil, fmt.Errorf("device: %w: push address is required", authdomain.ErrMalformedInput)
	}
	if strings.TrimSpace(rawFingerprint) == "" || strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("device: %w: name and device id are required", authdomain.ErrMalformedInput)
	}
	if err := lockIdentity(ctx, tx, identityID); err != nil {
		return nil, err
	}
	fingerprint := security.HashOneWay(rawFingerprint)
	existing, err := tx.Devices().GetByIdentityNameFingerprint(ctx, identityID, name, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("device: lookup: %w", err)
	}
	if existing != nil {
		return existing, nil
	}
	count, err := tx.Devices().CountByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("device: count: %w", err)
	}
	limit, err := r.limits.DeviceLimit(ctx, tx)
	if err != nil {
		return nil, err
	}
	if count >= limit {
		return nil, fmt.Errorf("device: %d of %d registered: %w", count, limit, authdomain.ErrCapacityExceeded)
	}
	now := r.now().UTC()
	d := &domain.Device{
		ID:          uuid.New().String(),
		IdentityID:  identityID,
		Name:        name,
		Fingerprint: fingerprint,
		PushAddress: pushAddress,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.Devices().Create(ctx, d); err != nil {
		return nil, fmt.Errorf("device: create: %w", err)
	}
	return d, nil
}

// Remove deletes the matching device and invalidates every session token of the identity.
func (r *Registry) Remove(ctx context.Context, tx store.Tx, identityID, rawFingerprint, name string) error {
	if err := lockIdentity(ctx, tx, identityID); err != nil {
		return err
	}
	d, err := r.Resolve(ctx, tx, identityID, rawFingerprint, name)
	if err != nil {
		return err
	}
	if err := tx.Devices().Delete(ctx, d.ID); err != nil {
		return fmt.Errorf("device: delete: %w", err)
	}
	return r.sessions.InvalidateSessionTokens(ctx, tx, identityID)
}

// SetPushAddress overwrites the device's push address when it differs (last write wins).
func (r *Registry) SetPushAddress(ctx context.Context, tx store.Tx, d *domain.Device, pushAddress string) error {
	if strings.TrimSpace(pushAddress) == "" {
		return fmt.Errorf("device: %w: push address is required", authdomain.ErrMalformedInput)
	}
	if d.PushAddress == pushAddress {
		return nil
	}
	now := r.now().UTC()
	if err := tx.Devices().UpdatePushAddress(ctx, d.ID, pushAddress, now); err != nil {
		return fmt.Errorf("device: update push address: %w", err)
	}
	d.PushAddress = pushAddress
	d.UpdatedAt = now
	return nil
}

// PushAddress returns the push address of the matching device.
func (r *Registry) PushAddress(ctx context.Context, tx store.Tx, identityID, rawFingerprint, name string) (string, error) {
	d, err := r.Resolve(ctx, tx, identityID, rawFingerprint, name)
	if err != nil {
		return "", err
	}
	return d.PushAddress, nil
}

// Latest returns the identity's most recently updated device, or nil if it has none.
func (r *Registry) Latest(ctx context.Context, tx store.Tx, identityID string) (*domain.Device, error) {
	d, err := tx.Devices().Latest(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("device: latest: %w", err)
	}
	return d, nil
}

// List returns the identity's devices, oldest first.
func (r *Registry) List(ctx context.Context, tx store.Tx, identityID string) ([]*domain.Device, error) {
	ds, err := tx.Devices().ListByIdentity(ctx, identityID)
	if err != nil {
		return nil, fmt.Errorf("device: list: %w", err)
	}
	return ds, nil
}

func lockIdentity(ctx context.Context, tx store.Tx, identityID string) error {
	ident, err := tx.Identities().LockByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("device: lock identity: %w", err)
	}
	if ident == nil {
		return authdomain.ErrUnauthorized
	}
	return nil
}
