package service

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	authdomain "transapp-auth/internal/auth/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/security"
	"transapp-auth/internal/sessiontoken/domain"
	"transapp-auth/internal/store"
)

// Manager issues identity tokens and rotates session tokens. Every identity
// holds at most one live session token: rotation deletes all prior tokens and
// inserts the new one while the identity row is locked.
type Manager struct {
	now      func() time.Time
	newToken func(prefix string) (string, error)
}

// NewManager returns a Manager.
func NewManager() *Manager {
	return &Manager{now: time.Now, newToken: security.NewPrefixedToken}
}

// IssueIdentityToken returns a new "{externalID}-{60 random chars}" identity token.
// The caller stores it on the identity as-is.
func (m *Manager) IssueIdentityToken(externalID string) (string, error) {
	tok, err := m.newToken(externalID)
	if err != nil {
		return "", fmt.Errorf("sessiontoken: issue identity token: %w", err)
	}
	return tok, nil
}

// RotateSessionToken replaces every session token of ident with a new one and
// returns its plaintext. Only the one-way hash is persisted.
func (m *Manager) RotateSessionToken(ctx context.Context, tx store.Tx, ident *identitydomain.Identity) (string, error) {
	locked, err := tx.Identities().LockByID(ctx, ident.ID)
	if err != nil {
		return "", fmt.Errorf("sessiontoken: lock identity: %w", err)
	}
	if locked == nil {
		return "", authdomain.ErrUnauthorized
	}
	if _, err := tx.SessionTokens().DeleteAllByIdentity(ctx, ident.ID); err != nil {
		return "", fmt.Errorf("sessiontoken: delete prior tokens: %w", err)
	}
	plain, err := m.newToken(locked.ExternalID)
	if err != nil {
		return "", fmt.Errorf("sessiontoken: generate: %w", err)
	}
	now := m.now().UTC()
	t := &domain.SessionToken{
		ID:         ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		IdentityID: ident.ID,
		TokenHash:  security.HashOneWay(plain),
		CreatedAt:  now,
	}
	if err := tx.SessionTokens().Create(ctx, t); err != nil {
		return "", fmt.Errorf("sessiontoken: create: %w", err)
	}
	return plain, nil
}

// InvalidateSessionTokens removes every session token of the identity.
func (m *Manager) InvalidateSessionTokens(ctx context.Context, tx store.Tx, identityID string) error {
	locked, err := tx.Identities().LockByID(ctx, identityID)
	if err != nil {
		return fmt.Errorf("sessiontoken: lock identity: %w", err)
	}
	if locked == nil {
		return authdomain.ErrUnauthorized
	}
	if _, err := tx.SessionTokens().DeleteAllByIdentity(ctx, identityID); err != nil {
		return fmt.Errorf("sessiontoken: invalidate: %w", err)
	}
	return nil
}

// ResolveSessionToken returns the active identity owning the presented plaintext token.
func (m *Manager) ResolveSessionToken(ctx context.Context, tx store.Tx, plaintext string) (*identitydomain.Identity, error) {
	if plaintext == "" {
		return nil, authdomain.ErrUnauthorized
	}
	t, err := tx.SessionTokens().GetByHash(ctx, security.HashOneWay(plaintext))
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: lookup: %w", err)
	}
	if t == nil {
		return nil, authdomain.ErrUnauthorized
	}
	ident, err := tx.Identities().GetByID(ctx, t.IdentityID)
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: lookup identity: %w", err)
	}
	if ident == nil || !ident.Active {
		return nil, authdomain.ErrUnauthorized
	}
	return ident, nil
}

// ResolveIdentityToken returns the active identity holding the identity token.
func (m *Manager) ResolveIdentityToken(ctx context.Context, tx store.Tx, token string) (*identitydomain.Identity, error) {
	if token == "" {
		return nil, authdomain.ErrUnauthorized
	}
	ident, err := tx.Identities().GetActiveByIdentityToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("sessiontoken: lookup identity token: %w", err)
	}
	if ident == nil {
		return nil, authdomain.ErrUnauthorized
	}
	return ident, nil
}
