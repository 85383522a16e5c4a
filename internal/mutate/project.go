package mutate

import (
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

// NewProject builds a project with a single ACTIVE root branch named after it.
func (m *Mutator) NewProject(name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Result{}, ErrEmptyTitle
	}
	now := m.Now()
	root := &domain.Branch{
		ID:          m.NewID(),
		Title:       name,
		Status:      domain.StatusActive,
		Tasks:       []domain.Task{},
		ChildrenIDs: []string{},
		ParentIDs:   []string{},
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	p := &domain.Project{
		ID:           m.NewID(),
		Name:         name,
		RootBranchID: root.ID,
		Branches:     map[string]*domain.Branch{root.ID: root},
		People:       []domain.Person{},
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return Result{
		Project: p,
		Changes: []domain.Change{
			domain.Upsert(domain.KindProject, p.ID, p.ID),
			domain.Upsert(domain.KindBranch, root.ID, p.ID),
		},
		CreatedID: p.ID,
	}, nil
}

func (m *Mutator) RenameProject(p *domain.Project, name string) (Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return unchanged(p), ErrEmptyTitle
	}
	if name == p.Name {
		return unchanged(p), nil
	}
	t := m.begin(p)
	t.next.Name = name
	t.touchProject()
	return t.result(""), nil
}

// SetRoot promotes a parentless branch to project root.
func (m *Mutator) SetRoot(p *domain.Project, branchID string) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	if p.RootBranchID == branchID {
		return unchanged(p), nil
	}
	if len(b.ParentIDs) > 0 {
		return unchanged(p), ErrInvalidRoot
	}
	t := m.begin(p)
	t.next.RootBranchID = branchID
	t.touchProject()
	return t.result(""), nil
}

// CreateRoot adds a fresh root branch named after the project and points
// the project at it. The previous root id, if any, is abandoned.
func (m *Mutator) CreateRoot(p *domain.Project) (Result, error) {
	t := m.begin(p)
	root := &domain.Branch{
		ID:          m.NewID(),
		Title:       p.Name,
		Status:      domain.StatusActive,
		Tasks:       []domain.Task{},
		ChildrenIDs: []string{},
		ParentIDs:   []string{},
		Version:     1,
		CreatedAt:   t.now,
		UpdatedAt:   t.now,
	}
	t.insert(root)
	t.record(domain.Upsert(domain.KindBranch, root.ID, p.ID))
	t.next.RootBranchID = root.ID
	t.touchProject()
	return t.result(root.ID), nil
}

// RepairLinks makes every parent/child reference mutual: references to
// missing branches, self references and duplicates are dropped, one-sided
// links are completed, and any parents of the root are removed.
func (m *Mutator) RepairLinks(p *domain.Project) (Result, error) {
	t := m.begin(p)

	if root, ok := p.Branches[p.RootBranchID]; ok && len(root.ParentIDs) > 0 {
		r := t.edit(root.ID)
		for _, pid := range root.ParentIDs {
			if parent := t.edit(pid); parent != nil && parent.HasChild(root.ID) {
				parent.ChildrenIDs = domain.RemoveID(parent.ChildrenIDs, root.ID)
				t.touchBranch(parent)
			}
		}
		r.ParentIDs = []string{}
		t.touchBranch(r)
	}

	for _, id := range t.next.SortedBranchIDs() {
		b, _ := t.branch(id)

		children := cleanRefs(t.next, id, b.ChildrenIDs)
		for i := 0; i < len(children); i++ {
			cid := children[i]
			if cid == t.next.RootBranchID {
				children = append(children[:i], children[i+1:]...)
				i--
				continue
			}
			if c, _ := t.branch(cid); !c.HasParent(id) {
				ce := t.edit(cid)
				ce.ParentIDs = append(ce.ParentIDs, id)
				t.touchBranch(ce)
			}
		}
		if !equalIDs(children, b.ChildrenIDs) {
			be := t.edit(id)
			be.ChildrenIDs = children
			t.touchBranch(be)
		}

		b, _ = t.branch(id)
		parents := cleanRefs(t.next, id, b.ParentIDs)
		if id == t.next.RootBranchID {
			parents = []string{}
		}
		for _, pid := range parents {
			if pb, _ := t.branch(pid); !pb.HasChild(id) {
				pe := t.edit(pid)
				pe.ChildrenIDs = append(pe.ChildrenIDs, id)
				t.touchBranch(pe)
			}
		}
		if !equalIDs(parents, b.ParentIDs) {
			be := t.edit(id)
			be.ParentIDs = parents
			t.touchBranch(be)
		}
	}
	return t.result(""), nil
}

// cleanRefs drops self references, duplicates and ids that do not resolve.
func cleanRefs(p *domain.Project, self string, ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if id == self || seen[id] {
			continue
		}
		if _, ok := p.Branches[id]; !ok {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
