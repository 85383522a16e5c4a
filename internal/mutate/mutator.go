// Package mutate holds the pure state transitions over a project snapshot.
//
// Every operation takes the current *domain.Project and returns a Result
// carrying a new snapshot plus the changes the persistence layer must push.
// The input snapshot is never modified. On error the input snapshot is
// returned as-is with no changes.
package mutate

import (
	"errors"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/google/uuid"
)

var (
	// ErrNotFound marks a stale reference. Callers treat it as a no-op.
	ErrNotFound = errors.New("entity not found")

	// ErrRootBranch rejects deleting or re-parenting the root branch.
	ErrRootBranch = errors.New("operation not allowed on the root branch")

	// ErrCycle rejects a link whose parent is already a descendant of the child.
	ErrCycle = errors.New("link would create a cycle")

	// ErrEmptyTitle rejects blank task, branch, project or person names.
	ErrEmptyTitle = errors.New("title must not be empty")

	// ErrInvalidRoot rejects promoting a branch that still has parents.
	ErrInvalidRoot = errors.New("root branch must not have parents")
)

// Mutator applies operations with an injectable clock and id source.
type Mutator struct {
	Now   func() time.Time
	NewID func() string
}

// New returns a Mutator stamping UTC wall-clock time and random UUIDs.
func New() *Mutator {
	return &Mutator{
		Now:   func() time.Time { return time.Now().UTC() },
		NewID: func() string { return uuid.New().String() },
	}
}

// Result is the outcome of one mutation.
type Result struct {
	Project   *domain.Project
	Changes   []domain.Change
	CreatedID string
}

// Changed reports whether the mutation produced a new snapshot.
func (r Result) Changed() bool { return len(r.Changes) > 0 }

// Then folds a follow-up mutation, applied to r.Project, into r. Changes are
// deduplicated the same way as within a single mutation.
func (r Result) Then(next Result) Result {
	t := &txn{changes: append([]domain.Change(nil), r.Changes...)}
	for _, c := range next.Changes {
		t.record(c)
	}
	return Result{
		Project:   next.Project,
		Changes:   t.changes,
		CreatedID: domain.CoalesceStr(r.CreatedID, next.CreatedID),
	}
}

func unchanged(p *domain.Project) Result { return Result{Project: p} }

// txn accumulates the copy-on-write edits of a single mutation.
type txn struct {
	m       *Mutator
	now     time.Time
	orig    *domain.Project
	next    *domain.Project
	owned   map[string]bool
	touched map[string]bool
	changes []domain.Change
}

func (m *Mutator) begin(p *domain.Project) *txn {
	return &txn{
		m:       m,
		now:     m.Now(),
		orig:    p,
		next:    p.Clone(),
		owned:   map[string]bool{},
		touched: map[string]bool{},
	}
}

func (t *txn) branch(id string) (*domain.Branch, bool) {
	b, ok := t.next.Branches[id]
	return b, ok
}

// edit returns a writable copy of branch id, cloning it on first use.
func (t *txn) edit(id string) *domain.Branch {
	b, ok := t.next.Branches[id]
	if !ok {
		return nil
	}
	if !t.owned[id] {
		b = b.Clone()
		t.next.Branches[id] = b
		t.owned[id] = true
	}
	return b
}

// insert adds a branch created by this mutation.
func (t *txn) insert(b *domain.Branch) {
	t.next.Branches[b.ID] = b
	t.owned[b.ID] = true
	t.touched[key(domain.KindBranch, b.ID)] = true
}

func (t *txn) touchProject() {
	k := key(domain.KindProject, t.next.ID)
	if !t.touched[k] {
		t.next.UpdatedAt = t.now
		t.next.Version++
		t.touched[k] = true
	}
	t.record(domain.Upsert(domain.KindProject, t.next.ID, t.next.ID))
}

func (t *txn) touchBranch(b *domain.Branch) {
	k := key(domain.KindBranch, b.ID)
	if !t.touched[k] {
		b.Touch(t.now)
		t.touched[k] = true
	}
	t.record(domain.Upsert(domain.KindBranch, b.ID, t.next.ID))
}

// touchTask stamps owner.Tasks[i]; owner must come from edit.
func (t *txn) touchTask(owner *domain.Branch, i int) {
	task := &owner.Tasks[i]
	k := key(domain.KindTask, task.ID)
	if !t.touched[k] {
		task.Touch(t.now)
		t.touched[k] = true
	}
	t.record(domain.Upsert(domain.KindTask, task.ID, owner.ID))
}

// renumberTasks sets every task's position to its index in owner, stamping
// the ones that moved. owner must come from edit.
func (t *txn) renumberTasks(owner *domain.Branch) {
	for i := range owner.Tasks {
		if owner.Tasks[i].Position != i {
			owner.Tasks[i].Position = i
			t.touchTask(owner, i)
		}
	}
}

func (t *txn) touchPerson(i int) {
	person := &t.next.People[i]
	k := key(domain.KindPerson, person.ID)
	if !t.touched[k] {
		person.Touch(t.now)
		t.touched[k] = true
	}
	t.record(domain.Upsert(domain.KindPerson, person.ID, t.next.ID))
}

// record appends c unless the entity already has an entry. A delete
// supersedes an earlier upsert of the same entity.
func (t *txn) record(c domain.Change) {
	for i, prev := range t.changes {
		if prev.Kind != c.Kind || prev.EntityID != c.EntityID {
			continue
		}
		if c.Action == domain.ActionDelete && prev.Action != domain.ActionDelete {
			t.changes = append(t.changes[:i], t.changes[i+1:]...)
			t.changes = append(t.changes, c)
			return
		}
		if prev.Action == domain.ActionUpsert && c.Action == domain.ActionUpsert {
			t.changes[i].OwnerID = c.OwnerID
		}
		return
	}
	t.changes = append(t.changes, c)
}

func (t *txn) result(createdID string) Result {
	if len(t.changes) == 0 {
		return unchanged(t.orig)
	}
	return Result{Project: t.next, Changes: t.changes, CreatedID: createdID}
}

func key(kind domain.EntityKind, id string) string { return string(kind) + ":" + id }
