package security

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// TokenRandomLength is the number of random characters after the prefix separator.
const TokenRandomLength = 60

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrEmptyTokenPrefix is returned when a prefixed token is requested for an empty prefix.
var ErrEmptyTokenPrefix = errors.New("token prefix must not be empty")

// RandomString returns n characters drawn uniformly from [A-Za-z0-9] using crypto/rand.
func RandomString(n int) (string, error) {
	var b strings.Builder
	b.Grow(n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return b.String(), nil
}

// NewPrefixedToken returns "{prefix}-{60 random URL-safe characters}".
func NewPrefixedToken(prefix string) (string, error) {
	if prefix == "" {
		return "", ErrEmptyTokenPrefix
	}
	r, err := RandomString(TokenRandomLength)
	if err != nil {
		return "", err
	}
	return prefix + "-" + r, nil
}
