package repository

import (
	"context"

	"uploadapi/internal/audit"
)

// SecurityEventRepository is the append-only store behind the audit
// trail. Events are never updated or deleted here; retention and
// rotation belong to an external process.
type SecurityEventRepository interface {
	// Append inserts one security event.
	Append(ctx context.Context, e audit.Event) error

	// ListRecent returns the newest events, newest first.
	ListRecent(ctx context.Context, limit int) ([]audit.Event, error)
}
