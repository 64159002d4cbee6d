package security

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrMalformedCiphertext is returned when a ciphertext cannot be decoded or
// authenticated. Callers treat it as a client-side encryption fault, distinct
// from a datastore or key failure.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Decrypter turns a transport-encrypted credential field into plaintext.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Box seals and opens credential fields with XChaCha20-Poly1305. The wire form
// is base64url (no padding) of nonce || sealed bytes.
type Box struct {
	aead cipher.AEAD
}

// NewBox returns a Box for the 32-byte key.
func NewBox(key []byte) (*Box, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("credential box: %w", err)
	}
	return &Box{aead: aead}, nil
}

// ParseKey decodes a hex-encoded 32-byte key.
func ParseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("credential key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credential key: want %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return key, nil
}

// Encrypt seals plaintext with a fresh random nonce.
func (b *Box) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, b.aead.NonceSize(), b.aead.NonceSize()+len(plaintext)+b.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	sealed := b.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any decoding or authentication
// failure returns ErrMalformedCiphertext.
func (b *Box) Decrypt(ciphertext string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(ciphertext))
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	ns := b.aead.NonceSize()
	if len(raw) < ns+b.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}
	plain, err := b.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}
