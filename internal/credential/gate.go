// Package credential decrypts submitted credential fields and authenticates
// them against stored password hashes.
package credential

import (
	"context"
	"errors"
	"fmt"

	authdomain "transapp-auth/internal/auth/domain"
	identitydomain "transapp-auth/internal/identity/domain"
	"transapp-auth/internal/security"
	"transapp-auth/internal/store"
)

// Gate turns encrypted credential fields into an authenticated identity.
type Gate struct {
	decrypter security.Decrypter
	hasher    *security.Hasher
}

// NewGate returns a Gate using decrypter for transport fields and hasher for password checks.
func NewGate(decrypter security.Decrypter, hasher *security.Hasher) *Gate {
	return &Gate{decrypter: decrypter, hasher: hasher}
}

// DecryptPassword decrypts one password field.
// Malformed ciphertext or an empty plaintext yields ErrMalformedCredential;
// other decrypter failures are returned wrapped and map to a server error.
func (g *Gate) DecryptPassword(ciphertext string) (string, error) {
	return g.decrypt(ciphertext)
}

// DecryptCredentials decrypts the external identifier and password fields.
func (g *Gate) DecryptCredentials(identityCiphertext, passwordCiphertext string) (externalID, password string, err error) {
	externalID, err = g.decrypt(identityCiphertext)
	if err != nil {
		return "", "", err
	}
	password, err = g.decrypt(passwordCiphertext)
	if err != nil {
		return "", "", err
	}
	return externalID, password, nil
}

// Authenticate decrypts both fields and verifies them against the active
// identity with that external identifier. Unknown, inactive, and wrong-password
// cases all return ErrInvalidCredential. It has no side effects.
func (g *Gate) Authenticate(ctx context.Context, tx store.Tx, identityCiphertext, passwordCiphertext string) (*identitydomain.Identity, error) {
	externalID, password, err := g.DecryptCredentials(identityCiphertext, passwordCiphertext)
	if err != nil {
		return nil, err
	}
	ident, err := tx.Identities().GetActiveByExternalID(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("credential: lookup identity: %w", err)
	}
	if ident == nil {
		_ = g.hasher.Compare("", []byte(password))
		return nil, authdomain.ErrInvalidCredential
	}
	if err := g.hasher.Compare(ident.PasswordHash, []byte(password)); err != nil {
		return nil, authdomain.ErrInvalidCredential
	}
	return ident, nil
}

// HashPassword hashes a decrypted password for storage.
func (g *Gate) HashPassword(password string) (string, error) {
	h, err := g.hasher.Hash([]byte(password))
	if errors.Is(err, security.ErrPasswordTooLong) {
		return "", fmt.Errorf("credential: %w: password too long", authdomain.ErrMalformedInput)
	}
	if err != nil {
		return "", fmt.Errorf("credential: hash password: %w", err)
	}
	return h, nil
}

func (g *Gate) decrypt(ciphertext string) (string, error) {
	plain, err := g.decrypter.Decrypt(ciphertext)
	if errors.Is(err, security.ErrMalformedCiphertext) {
		return "", fmt.Errorf("credential: %w", authdomain.ErrMalformedCredential)
	}
	if err != nil {
		return "", fmt.Errorf("credential: decrypt: %w", err)
	}
	if plain == "" {
		return "", fmt.Errorf("credential: %w: empty plaintext", authdomain.ErrMalformedCredential)
	}
	return plain, nil
}
