package migration

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id            UUID        PRIMARY KEY,
  owner_id      TEXT        NOT NULL,
  original_name TEXT        NOT NULL,
  content_type  TEXT        NOT NULL,
  size          BIGINT      NOT NULL CHECK (size >= 0),
  storage_path  TEXT        NOT NULL UNIQUE,
  created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner_created",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_created ON documents (owner_id, created_at DESC);`,
	},
	{
		Name: "create_table_access_grants",
		SQL: `CREATE TABLE IF NOT EXISTS access_grants (
  id           UUID        NOT NULL,
  document_id  UUID        NOT NULL UNIQUE REFERENCES documents (id) ON DELETE CASCADE,
  artifact_ref TEXT        NOT NULL,
  status       TEXT        NOT NULL CHECK (status IN ('ACTIVE', 'REVOKED')),
  issued_at    TIMESTAMPTZ NOT NULL,
  expires_at   TIMESTAMPTZ NOT NULL,
  PRIMARY KEY (id)
);`,
	},
	{
		Name: "create_index_access_grants_status",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_access_grants_status ON access_grants (status, issued_at);`,
	},
}

// sentinelTable is created by the last step; its presence means the schema is complete.
const sentinelTable = "public.access_grants"

// EnsureMigrated runs the schema steps unless the sentinel table already exists.
func EnsureMigrated(ctx context.Context, db *sql.DB, logger *slog.Logger, dbHost string) error {
	start := time.Now()
	log := logger.With("component", "database", "db_host", dbHost)

	log.Info("schema check", "event", "db_migration_check", "status", "starting")

	var exists bool
	err := db.QueryRowContext(ctx, "SELECT to_regclass($1) IS NOT NULL", sentinelTable).Scan(&exists)
	if err != nil {
		log.Error("schema check failed", "event", "db_migration_failed", "status", "error",
			"error_message", err.Error(), "duration_ms", time.Since(start).Milliseconds())
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		log.Info("schema already exists, skipping migration", "event", "db_migration_skip",
			"status", "success", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}

	log.Info("applying schema", "event", "db_migration_start", "status", "in_progress", "steps", len(steps))

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error("migration step failed", "event", "db_migration_failed", "status", "error",
				"migration_step", step.Name, "error_message", err.Error(),
				"duration_ms", time.Since(start).Milliseconds(),
				"step_duration_ms", time.Since(stepStart).Milliseconds())
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}
		log.Info("migration step applied", "event", "db_migration_step", "status", "success",
			"migration_step", step.Name, "step_duration_ms", time.Since(stepStart).Milliseconds())
	}

	log.Info("schema migrated", "event", "db_migration_success", "status", "success",
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}
