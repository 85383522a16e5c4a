package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOptions configures the connection pool.
type PostgresOptions struct {
	DSN             string
	OwnerID         string
	MaxConns        int32
	MinConns        int32
	MaxConnIdleTime time.Duration
	ConnectTimeout  time.Duration
	SlowQuery       time.Duration
}

// PostgresAdapter talks to the backend through a pgx pool.
type PostgresAdapter struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresAdapter builds the pool without requiring the server to be
// reachable; an offline start is normal and the sync loop pings later.
func NewPostgresAdapter(ctx context.Context, opts PostgresOptions, logger *slog.Logger) (*PostgresAdapter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing remote dsn: %w", err)
	}

	poolCfg.MaxConns = 4
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}
	poolCfg.MinConns = opts.MinConns
	poolCfg.MaxConnIdleTime = time.Minute
	if opts.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	if opts.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}

	poolCfg.ConnConfig.Tracer = NewSlowQueryTracer(logger, opts.SlowQuery)

	owner := opts.OwnerID
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		_, err := conn.Exec(ctx, "SELECT set_config('arbor.owner_id', $1, false)", owner)
		return err
	}

	logger.Debug("remote pool configured",
		"max_conns", poolCfg.MaxConns,
		"min_conns", poolCfg.MinConns,
		"max_idle_time", poolCfg.MaxConnIdleTime,
	)

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating remote pool: %w", err)
	}
	return &PostgresAdapter{pool: pool, logger: logger}, nil
}

func (a *PostgresAdapter) Close() { a.pool.Close() }

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// EnsureSchema creates the backend tables if they are missing.
func (a *PostgresAdapter) EnsureSchema(ctx context.Context) error {
	if _, err := a.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("applying remote schema: %w", err)
	}
	return nil
}

const upsertProjectSQL = `
INSERT INTO projects AS t (id, name, root_branch_id, owner_id, version, created_at, updated_at, fingerprint)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	root_branch_id = EXCLUDED.root_branch_id,
	version = EXCLUDED.version,
	updated_at = EXCLUDED.updated_at,
	fingerprint = EXCLUDED.fingerprint
WHERE t.version < EXCLUDED.version AND t.deleted_at IS NULL`

const upsertPersonSQL = `
INSERT INTO people AS t (id, project_id, name, email, phone, initials, color, version, updated_at, fingerprint)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	email = EXCLUDED.email,
	phone = EXCLUDED.phone,
	initials = EXCLUDED.initials,
	color = EXCLUDED.color,
	version = EXCLUDED.version,
	updated_at = EXCLUDED.updated_at,
	fingerprint = EXCLUDED.fingerprint
WHERE t.version < EXCLUDED.version AND t.deleted_at IS NULL`

const upsertBranchSQL = `
INSERT INTO branches AS t (id, project_id, title, description, status, responsible_id,
	start_date, end_date, due_date, archived, collapsed, is_label, is_sprint,
	sprint_counter, parent_ids, children_ids, position, version, created_at, updated_at, fingerprint)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
ON CONFLICT (id) DO UPDATE SET
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	status = EXCLUDED.status,
	responsible_id = EXCLUDED.responsible_id,
	start_date = EXCLUDED.start_date,
	end_date = EXCLUDED.end_date,
	due_date = EXCLUDED.due_date,
	archived = EXCLUDED.archived,
	collapsed = EXCLUDED.collapsed,
	is_label = EXCLUDED.is_label,
	is_sprint = EXCLUDED.is_sprint,
	sprint_counter = EXCLUDED.sprint_counter,
	parent_ids = EXCLUDED.parent_ids,
	children_ids = EXCLUDED.children_ids,
	position = EXCLUDED.position,
	version = EXCLUDED.version,
	updated_at = EXCLUDED.updated_at,
	fingerprint = EXCLUDED.fingerprint
WHERE t.version < EXCLUDED.version AND t.deleted_at IS NULL`

const upsertTaskSQL = `
INSERT INTO tasks AS t (id, branch_id, title, description, assignee_id, due_date,
	completed, completed_at, position, pinned, version, updated_at, fingerprint)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (id) DO UPDATE SET
	branch_id = EXCLUDED.branch_id,
	title = EXCLUDED.title,
	description = EXCLUDED.description,
	assignee_id = EXCLUDED.assignee_id,
	due_date = EXCLUDED.due_date,
	completed = EXCLUDED.completed,
	completed_at = EXCLUDED.completed_at,
	position = EXCLUDED.position,
	pinned = EXCLUDED.pinned,
	version = EXCLUDED.version,
	updated_at = EXCLUDED.updated_at,
	fingerprint = EXCLUDED.fingerprint
WHERE t.version < EXCLUDED.version AND t.deleted_at IS NULL`

// Upsert writes row if the stored version is older. A zero-row result is a
// conflict unless the same version with the same content is already stored,
// which happens when a push succeeded but its acknowledgement was lost.
// Another client's edit from the same base version carries the same version
// but a different fingerprint and conflicts.
func (a *PostgresAdapter) Upsert(ctx context.Context, row Row) error {
	var (
		tag pgconn.CommandTag
		err error
		fp  = Fingerprint(row)
	)
	switch r := row.(type) {
	case ProjectRow:
		tag, err = a.pool.Exec(ctx, upsertProjectSQL,
			r.ID, r.Name, r.RootBranchID, r.OwnerID, r.Version, r.CreatedAt, r.UpdatedAt, fp)
	case PersonRow:
		tag, err = a.pool.Exec(ctx, upsertPersonSQL,
			r.ID, r.ProjectID, r.Name, r.Email, r.Phone, r.Initials, r.Color, r.Version, r.UpdatedAt, fp)
	case BranchRow:
		tag, err = a.pool.Exec(ctx, upsertBranchSQL,
			r.ID, r.ProjectID, r.Title, r.Description, r.Status, r.ResponsibleID,
			r.StartDate, r.EndDate, r.DueDate, r.Archived, r.Collapsed, r.IsLabel, r.IsSprint,
			r.SprintCounter, nonNil(r.ParentIDs), nonNil(r.ChildrenIDs), r.Position, r.Version,
			r.CreatedAt, r.UpdatedAt, fp)
	case TaskRow:
		tag, err = a.pool.Exec(ctx, upsertTaskSQL,
			r.ID, r.BranchID, r.Title, r.Description, r.AssigneeID, r.DueDate,
			r.Completed, r.CompletedAt, r.Position, r.Pinned, r.Version, r.UpdatedAt, fp)
	default:
		return fmt.Errorf("upsert of %T: %w", row, ErrInvalidRow)
	}
	if err != nil {
		return fmt.Errorf("upserting %s %s: %w", row.Table(), row.RowID(), err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var (
		stored   int
		deleted  bool
		storedFP string
	)
	q := fmt.Sprintf("SELECT version, deleted_at IS NOT NULL, fingerprint FROM %s WHERE id = $1", row.Table())
	if err := a.pool.QueryRow(ctx, q, row.RowID()).Scan(&stored, &deleted, &storedFP); err != nil {
		return fmt.Errorf("reading %s %s after rejected upsert: %w", row.Table(), row.RowID(), err)
	}
	if !deleted && stored == row.RowVersion() && storedFP == fp {
		return nil
	}
	return fmt.Errorf("%s %s at version %d, remote has %d: %w",
		row.Table(), row.RowID(), row.RowVersion(), stored, ErrConflict)
}

// SoftDelete tombstones a row. Deleting a missing or already deleted row
// is a no-op.
func (a *PostgresAdapter) SoftDelete(ctx context.Context, table domain.Table, id string) error {
	if !knownTable(table) {
		return fmt.Errorf("table %q: %w", table, ErrInvalidRow)
	}
	q := fmt.Sprintf(
		"UPDATE %s SET deleted_at = now(), version = version + 1 WHERE id = $1 AND deleted_at IS NULL", table)
	if _, err := a.pool.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("deleting %s %s: %w", table, id, err)
	}
	return nil
}

func (a *PostgresAdapter) ListProjects(ctx context.Context, ownerID string) ([]domain.ProjectSummary, error) {
	rows, err := a.pool.Query(ctx, `
		SELECT id, name, created_at, updated_at FROM projects
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY updated_at DESC, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing remote projects: %w", err)
	}
	defer rows.Close()

	var out []domain.ProjectSummary
	for rows.Next() {
		var s domain.ProjectSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning remote project: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FetchProjectGraph reads the project and its live rows in one repeatable
// read transaction so the graph is consistent.
func (a *PostgresAdapter) FetchProjectGraph(ctx context.Context, projectID string) (*Graph, error) {
	tx, err := a.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("beginning graph read: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	g := &Graph{}
	err = tx.QueryRow(ctx, `
		SELECT id, name, root_branch_id, owner_id, version, created_at, updated_at
		FROM projects WHERE id = $1 AND deleted_at IS NULL`, projectID).
		Scan(&g.Project.ID, &g.Project.Name, &g.Project.RootBranchID, &g.Project.OwnerID,
			&g.Project.Version, &g.Project.CreatedAt, &g.Project.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading project %s: %w", projectID, err)
	}

	if g.People, err = queryPeople(ctx, tx, projectID); err != nil {
		return nil, err
	}
	if g.Branches, err = queryBranches(ctx, tx, projectID); err != nil {
		return nil, err
	}
	if g.Tasks, err = queryTasks(ctx, tx, projectID); err != nil {
		return nil, err
	}
	return g, nil
}

func queryPeople(ctx context.Context, tx pgx.Tx, projectID string) ([]PersonRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, project_id, name, email, phone, initials, color, version, updated_at
		FROM people WHERE project_id = $1 AND deleted_at IS NULL ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading people of %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []PersonRow
	for rows.Next() {
		var r PersonRow
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Name, &r.Email, &r.Phone,
			&r.Initials, &r.Color, &r.Version, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning person: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryBranches(ctx context.Context, tx pgx.Tx, projectID string) ([]BranchRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, project_id, title, description, status, responsible_id,
			start_date, end_date, due_date, archived, collapsed, is_label, is_sprint,
			sprint_counter, parent_ids, children_ids, position, version, created_at, updated_at
		FROM branches WHERE project_id = $1 AND deleted_at IS NULL
		ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading branches of %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []BranchRow
	for rows.Next() {
		var r BranchRow
		if err := rows.Scan(&r.ID, &r.ProjectID, &r.Title, &r.Description, &r.Status, &r.ResponsibleID,
			&r.StartDate, &r.EndDate, &r.DueDate, &r.Archived, &r.Collapsed, &r.IsLabel, &r.IsSprint,
			&r.SprintCounter, &r.ParentIDs, &r.ChildrenIDs, &r.Position, &r.Version,
			&r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		r.ParentIDs, r.ChildrenIDs = nonNil(r.ParentIDs), nonNil(r.ChildrenIDs)
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryTasks(ctx context.Context, tx pgx.Tx, projectID string) ([]TaskRow, error) {
	rows, err := tx.Query(ctx, `
		SELECT t.id, t.branch_id, t.title, t.description, t.assignee_id, t.due_date,
			t.completed, t.completed_at, t.position, t.pinned, t.version, t.updated_at
		FROM tasks t JOIN branches b ON b.id = t.branch_id
		WHERE b.project_id = $1 AND b.deleted_at IS NULL AND t.deleted_at IS NULL
		ORDER BY t.branch_id, t.position, t.id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("reading tasks of %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []TaskRow
	for rows.Next() {
		var r TaskRow
		if err := rows.Scan(&r.ID, &r.BranchID, &r.Title, &r.Description, &r.AssigneeID, &r.DueDate,
			&r.Completed, &r.CompletedAt, &r.Position, &r.Pinned, &r.Version, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning task: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func knownTable(t domain.Table) bool {
	switch t {
	case domain.TableProjects, domain.TablePeople, domain.TableBranches, domain.TableTasks:
		return true
	}
	return false
}
