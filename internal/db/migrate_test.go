package db

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "nested", "arbor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	for _, table := range []string{"projects", "settings", "sync_queue"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
	for _, idx := range []string{"idx_sync_queue_entity", "idx_sync_queue_project"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestOpenDB_Pragmas(t *testing.T) {
	db := openTestDB(t)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpenDB_Memory(t *testing.T) {
	db, err := OpenDB(MemoryPath)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ('k', '1', 'now')`)
	require.NoError(t, err)
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM settings`).Scan(&n))
	assert.Equal(t, 1, n, "the single pooled connection keeps the in-memory schema")
}

func TestMigrate_SyncQueueCheckConstraints(t *testing.T) {
	db := openTestDB(t)

	insert := `INSERT INTO sync_queue (project_id, table_name, entity_id, action, created_at, updated_at)
		VALUES ('p1', ?, 'e1', ?, 'now', 'now')`
	_, err := db.Exec(insert, "widgets", "upsert")
	assert.Error(t, err, "unknown table rejected")
	_, err = db.Exec(insert, "tasks", "merge")
	assert.Error(t, err, "unknown action rejected")
	_, err = db.Exec(insert, "tasks", "delete")
	assert.NoError(t, err)
}

func TestMigrate_UpgradeAddsVersionColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = raw.Exec(`CREATE TABLE projects (
		id TEXT PRIMARY KEY, name TEXT NOT NULL, snapshot TEXT NOT NULL,
		created_at TEXT NOT NULL, updated_at TEXT NOT NULL)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO projects VALUES ('p1', 'Old', '{"id":"p1","version":7}', 'then', 'then')`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := OpenDB(path)
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM projects WHERE id = 'p1'`).Scan(&version))
	assert.Equal(t, 7, version)
}
