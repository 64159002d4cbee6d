package telemetry

import (
	"context"

	"transapp-auth/internal/telemetry/domain"
)

// EventEmitter emits auth events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *domain.AuthEvent) error
}
