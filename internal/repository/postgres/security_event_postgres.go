package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"uploadapi/internal/audit"
	"uploadapi/internal/repository"
)

// SecurityEventPostgres is a PostgreSQL implementation of
// repository.SecurityEventRepository. The table is append-only; this
// type deliberately has no update or delete methods.
type SecurityEventPostgres struct {
	db *sql.DB
}

// NewSecurityEventPostgres creates a new SecurityEventPostgres repository.
func NewSecurityEventPostgres(db *sql.DB) *SecurityEventPostgres {
	return &SecurityEventPostgres{db: db}
}

var _ repository.SecurityEventRepository = (*SecurityEventPostgres)(nil)

// Append inserts one security event. The context variant is stored as
// JSONB keyed by the event kind.
func (r *SecurityEventPostgres) Append(ctx context.Context, e audit.Event) error {
	payload, err := json.Marshal(e.Context)
	if err != nil {
		return fmt.Errorf("marshal event context: %w", err)
	}

	const q = `
		INSERT INTO security_events (id, kind, severity, client_ip, context, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Kind),
		string(e.Severity),
		e.ClientIP,
		payload,
		e.CreatedAt,
	)
	return err
}

// ListRecent returns the newest events first. Context payloads come back
// as audit.RawContext; the kind column identifies the variant.
func (r *SecurityEventPostgres) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	const q = `
		SELECT id, kind, severity, client_ip, context, created_at
		FROM security_events
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]audit.Event, 0)
	for rows.Next() {
		var (
			e       audit.Event
			kind    string
			sev     string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &kind, &sev, &e.ClientIP, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Kind = audit.Kind(kind)
		e.Severity = audit.Severity(sev)
		e.Context = audit.RawContext(payload)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}
