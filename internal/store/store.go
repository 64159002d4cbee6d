// Package store groups the auth repositories behind a transactional unit of work.
package store

import (
	"context"

	auditrepo "transapp-auth/internal/audit/repository"
	devicerepo "transapp-auth/internal/device/repository"
	identityrepo "transapp-auth/internal/identity/repository"
	registryrepo "transapp-auth/internal/registry/repository"
	rolerepo "transapp-auth/internal/role/repository"
	sessiontokenrepo "transapp-auth/internal/sessiontoken/repository"
)

// Tx exposes repositories bound to one transaction. Values must not be retained
// after the WithTx callback returns.
type Tx interface {
	Identities() identityrepo.Repository
	Devices() devicerepo.Repository
	SessionTokens() sessiontokenrepo.Repository
	Roles() rolerepo.Repository
	Registry() registryrepo.Repository
}

// Store runs units of work. WithTx commits when fn returns nil and rolls back otherwise.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Audit returns the audit repository. Audit writes happen outside the
	// caller's transaction so failed operations are still recorded.
	Audit() auditrepo.Repository
}
