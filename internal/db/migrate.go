package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are re-run on every open,
// so each must be idempotent.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// ALTER TABLE ... ADD COLUMN has no IF NOT EXISTS form.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillProjectVersions(db); err != nil {
		return fmt.Errorf("backfilling project versions: %w", err)
	}
	return nil
}

// migrateBackfillProjectVersions copies the version stored inside each
// snapshot into the projects.version column for stores written before the
// column existed.
func migrateBackfillProjectVersions(db *sql.DB) error {
	ctx := context.Background()
	_, err := db.ExecContext(ctx, `UPDATE projects
		SET version = COALESCE(json_extract(snapshot, '$.version'), 0)
		WHERE version = 0 AND json_valid(snapshot)`)
	if err != nil {
		return fmt.Errorf("updating project versions: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS projects (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		snapshot    TEXT NOT NULL,
		version     INTEGER NOT NULL DEFAULT 0,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	// Stores created before snapshots carried versions.
	`ALTER TABLE projects ADD COLUMN version INTEGER NOT NULL DEFAULT 0`,

	`CREATE TABLE IF NOT EXISTS settings (
		key         TEXT PRIMARY KEY,
		value       TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`,

	// No foreign key to projects: a remote delete must outlive the local
	// snapshot it came from.
	`CREATE TABLE IF NOT EXISTS sync_queue (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id       TEXT NOT NULL,
		table_name       TEXT NOT NULL
		                 CHECK(table_name IN ('projects','people','branches','tasks')),
		entity_id        TEXT NOT NULL,
		action           TEXT NOT NULL CHECK(action IN ('upsert','delete')),
		payload          TEXT NOT NULL DEFAULT '',
		revision         INTEGER NOT NULL DEFAULT 1,
		attempts         INTEGER NOT NULL DEFAULT 0,
		next_attempt_at  TEXT,
		last_error       TEXT NOT NULL DEFAULT '',
		parked           INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_sync_queue_entity ON sync_queue(table_name, entity_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sync_queue_project ON sync_queue(project_id)`,
}
