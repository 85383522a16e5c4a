package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/arbor/internal/db"
	"github.com/alexanderramin/arbor/internal/domain"
)

// SQLiteProjectRepo stores each project as one JSON snapshot row.
type SQLiteProjectRepo struct {
	db db.DBTX
}

func NewSQLiteProjectRepo(conn db.DBTX) *SQLiteProjectRepo {
	return &SQLiteProjectRepo{db: conn}
}

// Save writes the whole snapshot, replacing any previous one.
func (r *SQLiteProjectRepo) Save(ctx context.Context, p *domain.Project) error {
	data, err := domain.EncodeSnapshot(p)
	if err != nil {
		return err
	}
	created := p.CreatedAt
	if created.IsZero() {
		created = nowUTC()
	}
	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	query := `INSERT INTO projects (id, name, snapshot, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			snapshot = excluded.snapshot,
			version = excluded.version,
			updated_at = excluded.updated_at`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		string(data),
		p.Version,
		formatTime(created),
		formatTime(updated),
	)
	if err != nil {
		return fmt.Errorf("saving project snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT snapshot FROM projects WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("loading project snapshot: %w", err)
	}
	return domain.DecodeSnapshot([]byte(data))
}

// List returns project summaries, most recently updated first.
func (r *SQLiteProjectRepo) List(ctx context.Context) ([]domain.ProjectSummary, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, created_at, updated_at FROM projects ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var out []domain.ProjectSummary
	for rows.Next() {
		var (
			s                  domain.ProjectSummary
			createdAt, updated string
		)
		if err := rows.Scan(&s.ID, &s.Name, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		if s.CreatedAt, err = parseTime(createdAt, "created_at"); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = parseTime(updated, "updated_at"); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}
	return out, nil
}

func (r *SQLiteProjectRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}
