package domain

import "time"

// AuthEvent is one structured auth outcome, emitted as an OTel log record.
type AuthEvent struct {
	IdentityID string
	DeviceID   string
	Operation  string
	Outcome    string
	Metadata   []byte // JSON
	CreatedAt  time.Time
}
