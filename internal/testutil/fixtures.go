package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/google/uuid"
)

// RootID is the id of the root branch created by NewTestProject.
const RootID = "R"

// Epoch is the fixed start time used by test clocks and fixtures.
var Epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

var fixtureSeq atomic.Int64

// Project options
type ProjectOption func(*domain.Project)

// Branch options
type BranchOption func(*domain.Branch)

func WithResponsible(personID string) BranchOption {
	return func(b *domain.Branch) {
		b.ResponsibleID = personID
	}
}

func AsSprint(counter int) BranchOption {
	return func(b *domain.Branch) {
		b.IsSprint = true
		b.SprintCounter = counter
	}
}

func WithStatus(s domain.BranchStatus) BranchOption {
	return func(b *domain.Branch) {
		b.Status = s
	}
}

// WithTasks gives the branch one task per title, with ids "<branch>-t<n>".
func WithTasks(titles ...string) BranchOption {
	return func(b *domain.Branch) {
		for i, title := range titles {
			b.Tasks = append(b.Tasks, domain.Task{
				ID:        fmt.Sprintf("%s-t%d", b.ID, i+1),
				Title:     title,
				Position:  i,
				Version:   1,
				UpdatedAt: Epoch,
			})
		}
	}
}

// WithBranch adds a branch and links it mutually under each parent. Parents
// must already exist; pass no parents to create a detached branch.
func WithBranch(id, title string, parentIDs []string, opts ...BranchOption) ProjectOption {
	return func(p *domain.Project) {
		b := NewTestBranch(id, title, opts...)
		for _, pid := range parentIDs {
			b.ParentIDs = append(b.ParentIDs, pid)
			parent := p.Branches[pid]
			parent.ChildrenIDs = append(parent.ChildrenIDs, id)
		}
		p.Branches[id] = b
	}
}

func WithPerson(id, name string) ProjectOption {
	return func(p *domain.Project) {
		p.People = append(p.People, domain.Person{
			ID:       id,
			Name:     name,
			Initials: domain.DeriveInitials(name),
			Color:    domain.PersonPalette[0],
			Version:  1,
		})
	}
}

func WithRootOptions(opts ...BranchOption) ProjectOption {
	return func(p *domain.Project) {
		for _, opt := range opts {
			opt(p.Branches[RootID])
		}
	}
}

// NewTestBranch builds a detached branch. Creation times increase with each
// call so SortedBranchIDs follows fixture order.
func NewTestBranch(id, title string, opts ...BranchOption) *domain.Branch {
	created := Epoch.Add(time.Duration(fixtureSeq.Add(1)) * time.Second)
	b := &domain.Branch{
		ID:          id,
		Title:       title,
		Status:      domain.StatusPlanned,
		Tasks:       []domain.Task{},
		ChildrenIDs: []string{},
		ParentIDs:   []string{},
		Version:     1,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewTestProject returns a project with a root branch "R". Options are
// applied in order, so branches can reference earlier ones as parents.
func NewTestProject(name string, opts ...ProjectOption) *domain.Project {
	root := NewTestBranch(RootID, name, WithStatus(domain.StatusActive))
	root.CreatedAt = Epoch
	p := &domain.Project{
		ID:           uuid.New().String(),
		Name:         name,
		RootBranchID: RootID,
		Branches:     map[string]*domain.Branch{RootID: root},
		People:       []domain.Person{},
		Version:      1,
		CreatedAt:    Epoch,
		UpdatedAt:    Epoch,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewTestMutator returns a mutator with a clock that advances one second
// per call and sequential ids "id-1", "id-2", ...
func NewTestMutator() *mutate.Mutator {
	var tick, ids atomic.Int64
	return &mutate.Mutator{
		Now: func() time.Time {
			return Epoch.Add(time.Duration(tick.Add(1)) * time.Second)
		},
		NewID: func() string {
			return fmt.Sprintf("id-%d", ids.Add(1))
		},
	}
}

// AssertSymmetric returns the first parent/child asymmetry in p, or "".
func AssertSymmetric(p *domain.Project) string {
	for id, b := range p.Branches {
		for _, cid := range b.ChildrenIDs {
			if c, ok := p.Branches[cid]; ok && !c.HasParent(id) {
				return fmt.Sprintf("%s lists child %s but %s does not list it as parent", id, cid, cid)
			}
		}
		for _, pid := range b.ParentIDs {
			if parent, ok := p.Branches[pid]; ok && !parent.HasChild(id) {
				return fmt.Sprintf("%s lists parent %s but %s does not list it as child", id, pid, pid)
			}
		}
	}
	return ""
}
