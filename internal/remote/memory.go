package remote

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
)

type memRecord struct {
	row     Row
	deleted bool
}

// Call records one adapter call seen by a MemoryAdapter.
type Call struct {
	Op    string
	Table domain.Table
	ID    string
}

// MemoryAdapter is an in-process backend with the same compare-and-swap
// rules as PostgresAdapter. It is used by tests and by --remote=memory.
type MemoryAdapter struct {
	mu      sync.Mutex
	tables  map[domain.Table]map[string]*memRecord
	calls   []Call
	offline bool
	failN   int
	failErr error

	// Hook, when set, runs before every write and can fail it.
	Hook func(op string, row Row) error
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{tables: map[domain.Table]map[string]*memRecord{}}
}

// SetOffline makes every call fail with ErrUnavailable until cleared.
func (m *MemoryAdapter) SetOffline(offline bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.offline = offline
}

// FailNext makes the next n writes fail with err.
func (m *MemoryAdapter) FailNext(n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failN, m.failErr = n, err
}

// Calls returns a copy of the recorded write calls.
func (m *MemoryAdapter) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// Seed stores rows directly, bypassing version checks.
func (m *MemoryAdapter) Seed(rows ...Row) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range rows {
		m.table(r.Table())[r.RowID()] = &memRecord{row: r}
	}
}

// Get returns the stored row and whether it is tombstoned.
func (m *MemoryAdapter) Get(table domain.Table, id string) (Row, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.tables[table][id]
	if !ok {
		return nil, false, false
	}
	return rec.row, rec.deleted, true
}

func (m *MemoryAdapter) Close() {}

func (m *MemoryAdapter) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.offline {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryAdapter) Upsert(ctx context.Context, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.preWrite(ctx, "upsert", row); err != nil {
		return err
	}
	if _, ok := row.(DeleteRef); ok || !knownTable(row.Table()) {
		return fmt.Errorf("upsert of %T: %w", row, ErrInvalidRow)
	}

	t := m.table(row.Table())
	if rec, ok := t[row.RowID()]; ok {
		stored := rec.row.RowVersion()
		if rec.deleted || stored > row.RowVersion() {
			return fmt.Errorf("%s %s at version %d, remote has %d: %w",
				row.Table(), row.RowID(), row.RowVersion(), stored, ErrConflict)
		}
		if stored == row.RowVersion() {
			if Fingerprint(rec.row) == Fingerprint(row) {
				return nil
			}
			return fmt.Errorf("%s %s at version %d was written with other content: %w",
				row.Table(), row.RowID(), stored, ErrConflict)
		}
		if pr, ok := row.(ProjectRow); ok {
			pr.OwnerID = rec.row.(ProjectRow).OwnerID
			row = pr
		}
	}
	t[row.RowID()] = &memRecord{row: row}
	return nil
}

func (m *MemoryAdapter) SoftDelete(ctx context.Context, table domain.Table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref := DeleteRef{Kind: table, ID: id}
	if err := m.preWrite(ctx, "delete", ref); err != nil {
		return err
	}
	if !knownTable(table) {
		return fmt.Errorf("table %q: %w", table, ErrInvalidRow)
	}
	if rec, ok := m.tables[table][id]; ok {
		rec.deleted = true
	}
	return nil
}

func (m *MemoryAdapter) preWrite(ctx context.Context, op string, row Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.offline {
		return ErrUnavailable
	}
	m.calls = append(m.calls, Call{Op: op, Table: row.Table(), ID: row.RowID()})
	if m.failN > 0 {
		m.failN--
		return m.failErr
	}
	if m.Hook != nil {
		return m.Hook(op, row)
	}
	return nil
}

func (m *MemoryAdapter) ListProjects(ctx context.Context, ownerID string) ([]domain.ProjectSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, ErrUnavailable
	}

	var out []domain.ProjectSummary
	for _, rec := range m.tables[domain.TableProjects] {
		r := rec.row.(ProjectRow)
		if rec.deleted || r.OwnerID != ownerID {
			continue
		}
		out = append(out, domain.ProjectSummary{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryAdapter) FetchProjectGraph(ctx context.Context, projectID string) (*Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.offline {
		return nil, ErrUnavailable
	}

	rec, ok := m.tables[domain.TableProjects][projectID]
	if !ok || rec.deleted {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}
	g := &Graph{Project: rec.row.(ProjectRow)}

	for _, rec := range m.tables[domain.TablePeople] {
		if r := rec.row.(PersonRow); !rec.deleted && r.ProjectID == projectID {
			g.People = append(g.People, r)
		}
	}
	sort.Slice(g.People, func(i, j int) bool { return g.People[i].ID < g.People[j].ID })

	live := map[string]bool{}
	for _, rec := range m.tables[domain.TableBranches] {
		if r := rec.row.(BranchRow); !rec.deleted && r.ProjectID == projectID {
			g.Branches = append(g.Branches, r)
			live[r.ID] = true
		}
	}
	sort.Slice(g.Branches, func(i, j int) bool {
		return lessCreated(g.Branches[i].CreatedAt, g.Branches[j].CreatedAt, g.Branches[i].ID, g.Branches[j].ID)
	})

	for _, rec := range m.tables[domain.TableTasks] {
		if r := rec.row.(TaskRow); !rec.deleted && live[r.BranchID] {
			g.Tasks = append(g.Tasks, r)
		}
	}
	sort.Slice(g.Tasks, func(i, j int) bool {
		a, b := g.Tasks[i], g.Tasks[j]
		if a.BranchID != b.BranchID {
			return a.BranchID < b.BranchID
		}
		if a.Position != b.Position {
			return a.Position < b.Position
		}
		return a.ID < b.ID
	})
	return g, nil
}

func (m *MemoryAdapter) table(t domain.Table) map[string]*memRecord {
	if m.tables[t] == nil {
		m.tables[t] = map[string]*memRecord{}
	}
	return m.tables[t]
}

func lessCreated(a, b time.Time, idA, idB string) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return idA < idB
}
