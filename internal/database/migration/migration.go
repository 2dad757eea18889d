package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_stored_files",
		SQL: `CREATE TABLE IF NOT EXISTS stored_files (
  id             UUID        PRIMARY KEY,
  secure_name    TEXT        NOT NULL UNIQUE,
  original_name  TEXT        NOT NULL,
  size           BIGINT      NOT NULL CHECK (size > 0),
  content_type   TEXT        NOT NULL,
  storage_path   TEXT        NOT NULL UNIQUE,
  application_id TEXT,
  scan_status    TEXT        NOT NULL,
  uploaded_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_stored_files_application_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_stored_files_application_id ON stored_files (application_id) WHERE application_id IS NOT NULL;`,
	},
	{
		Name: "create_index_stored_files_uploaded_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_stored_files_uploaded_at ON stored_files (uploaded_at);`,
	},
	{
		Name: "create_table_security_events",
		SQL: `CREATE TABLE IF NOT EXISTS security_events (
  id         UUID        PRIMARY KEY,
  kind       TEXT        NOT NULL,
  severity   TEXT        NOT NULL,
  client_ip  TEXT        NOT NULL,
  context    JSONB       NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_security_events_kind",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_security_events_kind ON security_events (kind);`,
	},
	{
		Name: "create_index_security_events_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_security_events_created_at ON security_events (created_at);`,
	},
	{
		Name: "create_index_security_events_client_ip",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_security_events_client_ip ON security_events (client_ip);`,
	},
}

// EnsureMigrated checks if the 'stored_files' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.stored_files') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
