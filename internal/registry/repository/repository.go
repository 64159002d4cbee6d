package repository

import "context"

// Repository defines persistence for runtime registry settings.
type Repository interface {
	// Get returns the value for (section, key). ok is false when the setting is absent.
	Get(ctx context.Context, section, key string) (value string, ok bool, err error)
	Set(ctx context.Context, section, key, value string) error
}
