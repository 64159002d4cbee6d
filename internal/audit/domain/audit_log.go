package domain

import "time"

// AuditLog represents an audit event. IdentityID is empty when the event has no
// resolvable identity, such as a failed login for an unknown external id.
type AuditLog struct {
	ID         string
	IdentityID string
	Action     string
	Resource   string
	Metadata   string
	CreatedAt  time.Time
}
