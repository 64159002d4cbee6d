package domain

import "time"

// SessionToken proves an authenticated session. Only the one-way hash of the
// token is stored; at most one exists per identity.
type SessionToken struct {
	ID         string
	IdentityID string
	TokenHash  string
	CreatedAt  time.Time
}
