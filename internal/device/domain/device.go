package domain

import "time"

// Device is a physical client bound to one identity. Fingerprint is the
// one-way hash of the client-supplied device identifier, never the raw value.
type Device struct {
	ID          string
	IdentityID  string
	Name        string
	Fingerprint string
	PushAddress string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
