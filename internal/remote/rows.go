package remote

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
)

// Row is one record of a remote table.
type Row interface {
	Table() domain.Table
	RowID() string
	RowVersion() int
}

type ProjectRow struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	RootBranchID string    `json:"root_branch_id"`
	OwnerID      string    `json:"owner_id"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type PersonRow struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Initials  string    `json:"initials"`
	Color     string    `json:"color"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

type BranchRow struct {
	ID            string    `json:"id"`
	ProjectID     string    `json:"project_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	ResponsibleID string    `json:"responsible_id"`
	StartDate     string    `json:"start_date"`
	EndDate       string    `json:"end_date"`
	DueDate       string    `json:"due_date"`
	Archived      bool      `json:"archived"`
	Collapsed     bool      `json:"collapsed"`
	IsLabel       bool      `json:"is_label"`
	IsSprint      bool      `json:"is_sprint"`
	SprintCounter int       `json:"sprint_counter"`
	ParentIDs     []string  `json:"parent_ids"`
	ChildrenIDs   []string  `json:"children_ids"`
	Position      int       `json:"position"`
	Version       int       `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type TaskRow struct {
	ID          string     `json:"id"`
	BranchID    string     `json:"branch_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  string     `json:"assignee_id"`
	DueDate     string     `json:"due_date"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Position    int        `json:"position"`
	Pinned      bool       `json:"pinned"`
	Version     int        `json:"version"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Fingerprint hashes the content of a row. Timestamps are compared at the
// backend's microsecond precision and the owner of a project row is left
// out since the server keeps the original owner.
func Fingerprint(row Row) string {
	data, err := json.Marshal(canonical(row))
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func canonical(row Row) Row {
	ts := func(t time.Time) time.Time { return t.UTC().Truncate(time.Microsecond) }
	switch r := row.(type) {
	case ProjectRow:
		r.OwnerID = ""
		r.CreatedAt, r.UpdatedAt = ts(r.CreatedAt), ts(r.UpdatedAt)
		return r
	case PersonRow:
		r.UpdatedAt = ts(r.UpdatedAt)
		return r
	case BranchRow:
		r.ParentIDs, r.ChildrenIDs = nonNil(r.ParentIDs), nonNil(r.ChildrenIDs)
		r.CreatedAt, r.UpdatedAt = ts(r.CreatedAt), ts(r.UpdatedAt)
		return r
	case TaskRow:
		if r.CompletedAt != nil {
			at := ts(*r.CompletedAt)
			r.CompletedAt = &at
		}
		r.UpdatedAt = ts(r.UpdatedAt)
		return r
	}
	return row
}

// DeleteRef is the payload of a queued soft delete.
type DeleteRef struct {
	Kind domain.Table `json:"table"`
	ID   string       `json:"id"`
}

func (r ProjectRow) Table() domain.Table { return domain.TableProjects }
func (r ProjectRow) RowID() string       { return r.ID }
func (r ProjectRow) RowVersion() int     { return r.Version }

func (r PersonRow) Table() domain.Table { return domain.TablePeople }
func (r PersonRow) RowID() string       { return r.ID }
func (r PersonRow) RowVersion() int     { return r.Version }

func (r BranchRow) Table() domain.Table { return domain.TableBranches }
func (r BranchRow) RowID() string       { return r.ID }
func (r BranchRow) RowVersion() int     { return r.Version }

func (r TaskRow) Table() domain.Table { return domain.TableTasks }
func (r TaskRow) RowID() string       { return r.ID }
func (r TaskRow) RowVersion() int     { return r.Version }

func (r DeleteRef) Table() domain.Table { return r.Kind }
func (r DeleteRef) RowID() string       { return r.ID }
func (r DeleteRef) RowVersion() int     { return 0 }

// RowFor builds the remote row for an upsert change from the snapshot the
// change was produced with. Deletes yield a DeleteRef.
func RowFor(p *domain.Project, ownerID string, c domain.Change) (Row, error) {
	table := c.Kind.Table()
	if c.Action == domain.ActionDelete {
		return DeleteRef{Kind: table, ID: c.EntityID}, nil
	}

	switch c.Kind {
	case domain.KindProject:
		return ProjectRow{
			ID:           p.ID,
			Name:         p.Name,
			RootBranchID: p.RootBranchID,
			OwnerID:      ownerID,
			Version:      p.Version,
			CreatedAt:    p.CreatedAt,
			UpdatedAt:    p.UpdatedAt,
		}, nil
	case domain.KindPerson:
		person, ok := p.PersonByID(c.EntityID)
		if !ok {
			return nil, fmt.Errorf("person %s: %w", c.EntityID, ErrInvalidRow)
		}
		return personRow(p.ID, person), nil
	case domain.KindBranch:
		b, ok := p.Branches[c.EntityID]
		if !ok {
			return nil, fmt.Errorf("branch %s: %w", c.EntityID, ErrInvalidRow)
		}
		return branchRow(p.ID, b), nil
	case domain.KindTask:
		owner, ok := p.Branches[c.OwnerID]
		i := -1
		if ok {
			i = owner.TaskIndex(c.EntityID)
		}
		if i < 0 {
			if owner, i, ok = p.FindTask(c.EntityID); !ok {
				return nil, fmt.Errorf("task %s: %w", c.EntityID, ErrInvalidRow)
			}
		}
		return taskRow(owner.ID, owner.Tasks[i]), nil
	}
	return nil, fmt.Errorf("kind %q: %w", c.Kind, ErrInvalidRow)
}

// GraphRows lists every row of the project in dependency order: project,
// people, branches, then tasks.
func GraphRows(p *domain.Project, ownerID string) []Row {
	rows := []Row{ProjectRow{
		ID:           p.ID,
		Name:         p.Name,
		RootBranchID: p.RootBranchID,
		OwnerID:      ownerID,
		Version:      p.Version,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}}
	for i := range p.People {
		rows = append(rows, personRow(p.ID, &p.People[i]))
	}
	ids := p.SortedBranchIDs()
	for _, id := range ids {
		rows = append(rows, branchRow(p.ID, p.Branches[id]))
	}
	for _, id := range ids {
		for _, t := range p.Branches[id].Tasks {
			rows = append(rows, taskRow(id, t))
		}
	}
	return rows
}

func personRow(projectID string, person *domain.Person) PersonRow {
	return PersonRow{
		ID:        person.ID,
		ProjectID: projectID,
		Name:      person.Name,
		Email:     person.Email,
		Phone:     person.Phone,
		Initials:  person.Initials,
		Color:     person.Color,
		Version:   person.Version,
		UpdatedAt: person.UpdatedAt,
	}
}

func branchRow(projectID string, b *domain.Branch) BranchRow {
	return BranchRow{
		ID:            b.ID,
		ProjectID:     projectID,
		Title:         b.Title,
		Description:   b.Description,
		Status:        string(b.Status),
		ResponsibleID: b.ResponsibleID,
		StartDate:     b.StartDate,
		EndDate:       b.EndDate,
		DueDate:       b.DueDate,
		Archived:      b.Archived,
		Collapsed:     b.Collapsed,
		IsLabel:       b.IsLabel,
		IsSprint:      b.IsSprint,
		SprintCounter: b.SprintCounter,
		ParentIDs:     nonNil(b.ParentIDs),
		ChildrenIDs:   nonNil(b.ChildrenIDs),
		Position:      b.Position,
		Version:       b.Version,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func taskRow(branchID string, t domain.Task) TaskRow {
	return TaskRow{
		ID:          t.ID,
		BranchID:    branchID,
		Title:       t.Title,
		Description: t.Description,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CompletedAt: t.CompletedAt,
		Position:    t.Position,
		Pinned:      t.Pinned,
		Version:     t.Version,
		UpdatedAt:   t.UpdatedAt,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// EncodeRow serializes a row for the sync queue.
func EncodeRow(r Row) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encoding %s row: %w", r.Table(), err)
	}
	return data, nil
}

// DecodeRow restores a queued row and validates it against its table.
func DecodeRow(table domain.Table, action domain.SyncAction, payload []byte) (Row, error) {
	if action == domain.ActionDelete {
		var ref DeleteRef
		if err := json.Unmarshal(payload, &ref); err != nil {
			return nil, fmt.Errorf("decoding delete of %s: %v: %w", table, err, ErrInvalidRow)
		}
		ref.Kind = table
		if ref.ID == "" {
			return nil, fmt.Errorf("delete of %s without id: %w", table, ErrInvalidRow)
		}
		return ref, nil
	}

	var (
		row Row
		err error
	)
	switch table {
	case domain.TableProjects:
		var r ProjectRow
		err = json.Unmarshal(payload, &r)
		row = r
	case domain.TablePeople:
		var r PersonRow
		err = json.Unmarshal(payload, &r)
		row = r
	case domain.TableBranches:
		var r BranchRow
		err = json.Unmarshal(payload, &r)
		r.ParentIDs, r.ChildrenIDs = nonNil(r.ParentIDs), nonNil(r.ChildrenIDs)
		row = r
	case domain.TableTasks:
		var r TaskRow
		err = json.Unmarshal(payload, &r)
		row = r
	default:
		return nil, fmt.Errorf("table %q: %w", table, ErrInvalidRow)
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s row: %v: %w", table, err, ErrInvalidRow)
	}
	if row.RowID() == "" {
		return nil, fmt.Errorf("%s row without id: %w", table, ErrInvalidRow)
	}
	return row, nil
}

// Snapshot rebuilds a project from the graph. Tasks are ordered by
// position within their branch; tasks of unknown branches are dropped.
func (g *Graph) Snapshot() *domain.Project {
	p := &domain.Project{
		ID:           g.Project.ID,
		Name:         g.Project.Name,
		RootBranchID: g.Project.RootBranchID,
		Branches:     make(map[string]*domain.Branch, len(g.Branches)),
		People:       make([]domain.Person, 0, len(g.People)),
		Version:      g.Project.Version,
		CreatedAt:    g.Project.CreatedAt,
		UpdatedAt:    g.Project.UpdatedAt,
	}
	for _, r := range g.People {
		p.People = append(p.People, domain.Person{
			ID:        r.ID,
			Name:      r.Name,
			Email:     r.Email,
			Phone:     r.Phone,
			Initials:  r.Initials,
			Color:     r.Color,
			Version:   r.Version,
			UpdatedAt: r.UpdatedAt,
		})
	}
	for _, r := range g.Branches {
		p.Branches[r.ID] = &domain.Branch{
			ID:            r.ID,
			Title:         r.Title,
			Description:   r.Description,
			Status:        domain.BranchStatus(r.Status),
			IsLabel:       r.IsLabel,
			IsSprint:      r.IsSprint,
			SprintCounter: r.SprintCounter,
			ResponsibleID: r.ResponsibleID,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			DueDate:       r.DueDate,
			Tasks:         []domain.Task{},
			ChildrenIDs:   append([]string{}, r.ChildrenIDs...),
			ParentIDs:     append([]string{}, r.ParentIDs...),
			Archived:      r.Archived,
			Collapsed:     r.Collapsed,
			Position:      r.Position,
			Version:       r.Version,
			CreatedAt:     r.CreatedAt,
			UpdatedAt:     r.UpdatedAt,
		}
	}

	tasks := append([]TaskRow(nil), g.Tasks...)
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })
	for _, r := range tasks {
		b, ok := p.Branches[r.BranchID]
		if !ok {
			continue
		}
		b.Tasks = append(b.Tasks, domain.Task{
			ID:          r.ID,
			Title:       r.Title,
			Description: r.Description,
			AssigneeID:  r.AssigneeID,
			DueDate:     r.DueDate,
			Completed:   r.Completed,
			CompletedAt: r.CompletedAt,
			Position:    r.Position,
			Pinned:      r.Pinned,
			Version:     r.Version,
			UpdatedAt:   r.UpdatedAt,
		})
	}
	return p
}
