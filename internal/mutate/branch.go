package mutate

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

// DefaultBranchTitle names children of non-sprint branches.
const DefaultBranchTitle = "New branch"

// Direction moves an item one slot towards the front (Prev) or back (Next).
type Direction int

const (
	Prev Direction = -1
	Next Direction = 1
)

// ParseDirection accepts prev/left/up and next/right/down.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "prev", "left", "up":
		return Prev, nil
	case "next", "right", "down":
		return Next, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want prev|left|up|next|right|down)", s)
	}
}

func (d Direction) String() string {
	if d == Prev {
		return "prev"
	}
	return "next"
}

// SprintChildTitle formats the title of the counter-th child of a sprint
// branch created in the given two-digit year.
func SprintChildTitle(parentTitle, year string, counter int) string {
	return fmt.Sprintf("%s %s-%02d", parentTitle, year, counter)
}

// AddBranch creates a PLANNED child under parentID. Sprint parents number
// the child and advance their counter in the same transition.
func (m *Mutator) AddBranch(p *domain.Project, parentID string) (Result, error) {
	if _, ok := p.Branches[parentID]; !ok {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	parent := t.edit(parentID)

	title := DefaultBranchTitle
	if parent.IsSprint {
		parent.SprintCounter++
		title = SprintChildTitle(parent.Title, t.now.Format("06"), parent.SprintCounter)
	}

	child := &domain.Branch{
		ID:          m.NewID(),
		Title:       title,
		Status:      domain.StatusPlanned,
		Tasks:       []domain.Task{},
		ChildrenIDs: []string{},
		ParentIDs:   []string{parentID},
		Position:    len(parent.ChildrenIDs),
		Version:     1,
		CreatedAt:   t.now,
		UpdatedAt:   t.now,
	}
	t.insert(child)
	t.record(domain.Upsert(domain.KindBranch, child.ID, p.ID))

	parent.ChildrenIDs = append(parent.ChildrenIDs, child.ID)
	t.touchBranch(parent)
	return t.result(child.ID), nil
}

// UpdateBranch merges patch into the branch. Values are not validated.
func (m *Mutator) UpdateBranch(p *domain.Project, branchID string, patch domain.BranchPatch) (Result, error) {
	if _, ok := p.Branches[branchID]; !ok {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	b := t.edit(branchID)
	if !patch.Apply(b) {
		return unchanged(p), nil
	}
	t.touchBranch(b)
	return t.result(""), nil
}

// DeleteBranch unlinks the branch from all neighbours and removes it. Its
// children stay in the graph and may become orphans.
func (m *Mutator) DeleteBranch(p *domain.Project, branchID string) (Result, error) {
	if branchID == p.RootBranchID {
		return unchanged(p), ErrRootBranch
	}
	target, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)

	for _, pid := range target.ParentIDs {
		if parent := t.edit(pid); parent != nil && parent.HasChild(branchID) {
			parent.ChildrenIDs = domain.RemoveID(parent.ChildrenIDs, branchID)
			t.touchBranch(parent)
		}
	}
	for _, cid := range target.ChildrenIDs {
		if child := t.edit(cid); child != nil && child.HasParent(branchID) {
			child.ParentIDs = domain.RemoveID(child.ParentIDs, branchID)
			t.touchBranch(child)
		}
	}
	for _, task := range target.Tasks {
		t.record(domain.Delete(domain.KindTask, task.ID, branchID))
	}
	delete(t.next.Branches, branchID)
	t.record(domain.Delete(domain.KindBranch, branchID, p.ID))
	return t.result(""), nil
}

// ToggleBranchArchive flips the archived flag. Archived branches stay in
// the graph.
func (m *Mutator) ToggleBranchArchive(p *domain.Project, branchID string) (Result, error) {
	if _, ok := p.Branches[branchID]; !ok {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	b := t.edit(branchID)
	b.Archived = !b.Archived
	t.touchBranch(b)
	return t.result(""), nil
}

// LinkBranch adds parentID as a parent of childID. Self links and existing
// links are no-ops; links that would close a cycle are rejected.
func (m *Mutator) LinkBranch(p *domain.Project, childID, parentID string) (Result, error) {
	if childID == parentID {
		return unchanged(p), nil
	}
	child, ok := p.Branches[childID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	parent, ok := p.Branches[parentID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	if childID == p.RootBranchID {
		return unchanged(p), ErrRootBranch
	}
	if child.HasParent(parentID) && parent.HasChild(childID) {
		return unchanged(p), nil
	}
	if IsDescendant(p, childID, parentID) {
		return unchanged(p), ErrCycle
	}

	t := m.begin(p)
	c := t.edit(childID)
	if !c.HasParent(parentID) {
		c.ParentIDs = append(c.ParentIDs, parentID)
	}
	t.touchBranch(c)
	pb := t.edit(parentID)
	if !pb.HasChild(childID) {
		pb.ChildrenIDs = append(pb.ChildrenIDs, childID)
	}
	t.touchBranch(pb)
	return t.result(""), nil
}

// UnlinkBranch removes the parent/child reference in both directions.
func (m *Mutator) UnlinkBranch(p *domain.Project, childID, parentID string) (Result, error) {
	child, ok := p.Branches[childID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	parent, ok := p.Branches[parentID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	if !child.HasParent(parentID) && !parent.HasChild(childID) {
		return unchanged(p), nil
	}

	t := m.begin(p)
	c := t.edit(childID)
	c.ParentIDs = domain.RemoveID(c.ParentIDs, parentID)
	t.touchBranch(c)
	pb := t.edit(parentID)
	pb.ChildrenIDs = domain.RemoveID(pb.ChildrenIDs, childID)
	t.touchBranch(pb)
	return t.result(""), nil
}

// MoveBranch swaps the branch with its neighbour in the children list of
// its first parent. Boundaries and parentless branches are no-ops.
func (m *Mutator) MoveBranch(p *domain.Project, branchID string, dir Direction) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	if len(b.ParentIDs) == 0 {
		return unchanged(p), nil
	}
	parent, ok := p.Branches[b.ParentIDs[0]]
	if !ok {
		return unchanged(p), nil
	}
	idx := -1
	for i, id := range parent.ChildrenIDs {
		if id == branchID {
			idx = i
			break
		}
	}
	j := idx + int(dir)
	if idx < 0 || j < 0 || j >= len(parent.ChildrenIDs) {
		return unchanged(p), nil
	}

	t := m.begin(p)
	pb := t.edit(parent.ID)
	pb.ChildrenIDs[idx], pb.ChildrenIDs[j] = pb.ChildrenIDs[j], pb.ChildrenIDs[idx]
	t.touchBranch(pb)
	return t.result(""), nil
}
