// Package registry reads and writes runtime settings used by the auth core.
package registry

import (
	"context"
	"fmt"
	"log"
	"strconv"

	authdomain "transapp-auth/internal/auth/domain"
	"transapp-auth/internal/registry/domain"
	"transapp-auth/internal/store"
)

// DeviceLimits reads the per-identity device cap from the registry on every call.
// Default applies when the setting is absent or unparseable.
type DeviceLimits struct {
	Default int
}

// NewDeviceLimits returns a provider with the given fallback limit.
func NewDeviceLimits(defaultLimit int) *DeviceLimits {
	return &DeviceLimits{Default: defaultLimit}
}

// DeviceLimit returns the current device cap.
func (l *DeviceLimits) DeviceLimit(ctx context.Context, tx store.Tx) (int, error) {
	v, ok, err := tx.Registry().Get(ctx, domain.SectionUser, domain.KeyDeviceLimit)
	if err != nil {
		return 0, fmt.Errorf("registry: read device limit: %w", err)
	}
	if !ok {
		return l.Default, nil
	}
	n, err := domain.ParseDeviceLimit(v)
	if err != nil {
		log.Printf("registry: invalid %s/%s value %q, using default %d", domain.SectionUser, domain.KeyDeviceLimit, v, l.Default)
		return l.Default, nil
	}
	return n, nil
}

// SetDeviceLimit stores a new device cap. Negative limits are rejected.
func (l *DeviceLimits) SetDeviceLimit(ctx context.Context, tx store.Tx, limit int) error {
	if limit < 0 {
		return fmt.Errorf("registry: %w: %v", authdomain.ErrMalformedInput, domain.ErrInvalidDeviceLimit)
	}
	if err := tx.Registry().Set(ctx, domain.SectionUser, domain.KeyDeviceLimit, strconv.Itoa(limit)); err != nil {
		return fmt.Errorf("registry: write device limit: %w", err)
	}
	return nil
}
