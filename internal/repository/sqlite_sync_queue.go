package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/arbor/internal/db"
	"github.com/alexanderramin/arbor/internal/domain"
)

// SQLiteSyncQueueRepo is the durable outbox drained by the sync engine.
//
// Entries drain in id order, so a write never overtakes one queued before
// it. Enqueueing for an entity whose pending entry is the newest in the
// queue rewrites that entry in place and bumps its revision; otherwise a
// new entry is appended and the older ones are dropped once it is pushed.
// Remove only deletes the revision the caller pushed, so a rewrite that
// lands mid-push is sent on the next cycle.
type SQLiteSyncQueueRepo struct {
	db db.DBTX
}

func NewSQLiteSyncQueueRepo(conn db.DBTX) *SQLiteSyncQueueRepo {
	return &SQLiteSyncQueueRepo{db: conn}
}

const syncEntryColumns = `id, project_id, table_name, entity_id, action, payload, revision,
	attempts, next_attempt_at, last_error, parked, created_at, updated_at`

// Enqueue appends e, or coalesces it into the entity's pending entry when
// that entry is the queue tail. On return e carries the stored id, revision
// and timestamps.
func (r *SQLiteSyncQueueRepo) Enqueue(ctx context.Context, e *domain.SyncEntry) error {
	now := nowUTC()

	coalesce := `UPDATE sync_queue
		SET project_id = ?, action = ?, payload = ?, revision = revision + 1, updated_at = ?
		WHERE id = (
			SELECT id FROM sync_queue
			WHERE table_name = ? AND entity_id = ? AND parked = 0
			ORDER BY id DESC LIMIT 1
		)
		AND id = (SELECT MAX(id) FROM sync_queue)
		RETURNING ` + syncEntryColumns
	row := r.db.QueryRowContext(ctx, coalesce,
		e.ProjectID, string(e.Action), string(e.Payload), formatTime(now),
		string(e.Table), e.EntityID,
	)
	stored, err := scanSyncEntry(row)
	if err == nil {
		*e = *stored
		return nil
	}
	if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("coalescing sync entry: %w", err)
	}

	insert := `INSERT INTO sync_queue (project_id, table_name, entity_id, action, payload,
		revision, attempts, last_error, parked, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, 0, '', 0, ?, ?)
		RETURNING ` + syncEntryColumns
	row = r.db.QueryRowContext(ctx, insert,
		e.ProjectID, string(e.Table), e.EntityID, string(e.Action), string(e.Payload),
		formatTime(now), formatTime(now),
	)
	stored, err = scanSyncEntry(row)
	if err != nil {
		return fmt.Errorf("inserting sync entry: %w", err)
	}
	*e = *stored
	return nil
}

// List returns every entry in queue order, parked ones included.
func (r *SQLiteSyncQueueRepo) List(ctx context.Context) ([]domain.SyncEntry, error) {
	return r.query(ctx, `SELECT `+syncEntryColumns+` FROM sync_queue ORDER BY id`)
}

func (r *SQLiteSyncQueueRepo) ListByProject(ctx context.Context, projectID string) ([]domain.SyncEntry, error) {
	return r.query(ctx, `SELECT `+syncEntryColumns+` FROM sync_queue WHERE project_id = ? ORDER BY id`, projectID)
}

func (r *SQLiteSyncQueueRepo) Get(ctx context.Context, id int64) (*domain.SyncEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+syncEntryColumns+` FROM sync_queue WHERE id = ?`, id)
	e, err := scanSyncEntry(row)
	if err != nil {
		return nil, fmt.Errorf("sync entry %d: %w", id, err)
	}
	return e, nil
}

// Remove deletes the entry if it is still at revision. It reports false
// when the entry was rewritten or is already gone.
func (r *SQLiteSyncQueueRepo) Remove(ctx context.Context, id int64, revision int) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sync_queue WHERE id = ? AND revision = ?`, id, revision)
	if err != nil {
		return false, fmt.Errorf("removing sync entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("removing sync entry: %w", err)
	}
	return n > 0, nil
}

// RemoveSuperseded drops older entries for the entity, which a newer
// confirmed write has made stale.
func (r *SQLiteSyncQueueRepo) RemoveSuperseded(ctx context.Context, table domain.Table, entityID string, beforeID int64) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sync_queue WHERE table_name = ? AND entity_id = ? AND id < ?`,
		string(table), entityID, beforeID)
	if err != nil {
		return 0, fmt.Errorf("removing superseded sync entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("removing superseded sync entries: %w", err)
	}
	return int(n), nil
}

func (r *SQLiteSyncQueueRepo) MarkFailed(ctx context.Context, id int64, f Failure) error {
	query := `UPDATE sync_queue
		SET attempts = ?, next_attempt_at = ?, last_error = ?, parked = ?, updated_at = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query,
		f.Attempts,
		nullableTimeToString(f.NextAttemptAt),
		f.LastError,
		boolToInt(f.Parked),
		formatTime(nowUTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("recording sync failure: %w", err)
	}
	return nil
}

// Retry un-parks an entry and clears its backoff.
func (r *SQLiteSyncQueueRepo) Retry(ctx context.Context, id int64) error {
	query := `UPDATE sync_queue
		SET parked = 0, attempts = 0, next_attempt_at = NULL, last_error = '', updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, formatTime(nowUTC()), id)
	if err != nil {
		return fmt.Errorf("retrying sync entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("sync entry %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteSyncQueueRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting sync entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteSyncQueueRepo) CountParked(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sync_queue WHERE parked = 1`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting parked sync entries: %w", err)
	}
	return n, nil
}

func (r *SQLiteSyncQueueRepo) query(ctx context.Context, query string, args ...any) ([]domain.SyncEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sync entries: %w", err)
	}
	defer rows.Close()

	var out []domain.SyncEntry
	for rows.Next() {
		e, err := scanSyncEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sync entries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSyncEntry(row rowScanner) (*domain.SyncEntry, error) {
	var (
		e                  domain.SyncEntry
		table, action      string
		payload            string
		nextAttempt        sql.NullString
		parked             int
		createdAt, updated string
	)
	err := row.Scan(
		&e.ID, &e.ProjectID, &table, &e.EntityID, &action, &payload, &e.Revision,
		&e.Attempts, &nextAttempt, &e.LastError, &parked, &createdAt, &updated,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scanning sync entry: %w", err)
	}
	e.Table = domain.Table(table)
	e.Action = domain.SyncAction(action)
	e.Payload = []byte(payload)
	e.NextAttemptAt = parseNullableTime(nextAttempt)
	e.Parked = intToBool(parked)
	if e.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = parseTime(updated, "updated_at"); err != nil {
		return nil, err
	}
	return &e, nil
}
