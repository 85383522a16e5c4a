package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Project is an immutable snapshot of one project graph. Mutations build a
// new Project with Clone and replace only the entities they touch.
type Project struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	RootBranchID string             `json:"rootBranchId"`
	Branches     map[string]*Branch `json:"branches"`
	People       []Person           `json:"people"`
	Version      int                `json:"version,omitempty"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

// Clone returns a shallow copy: the branch map and people slice are new,
// branch pointers are shared. Callers must replace a branch with
// Branch.Clone before changing it.
func (p *Project) Clone() *Project {
	cp := *p
	cp.Branches = make(map[string]*Branch, len(p.Branches))
	for id, b := range p.Branches {
		cp.Branches[id] = b
	}
	cp.People = append([]Person(nil), p.People...)
	return &cp
}

// Root returns the root branch, if it resolves.
func (p *Project) Root() (*Branch, bool) {
	b, ok := p.Branches[p.RootBranchID]
	return b, ok
}

// PersonByID looks up a collaborator. A missing person means "unassigned".
func (p *Project) PersonByID(id string) (*Person, bool) {
	if id == "" {
		return nil, false
	}
	for i := range p.People {
		if p.People[i].ID == id {
			return &p.People[i], true
		}
	}
	return nil, false
}

// FindTask returns the branch owning taskID and the task's index in it.
func (p *Project) FindTask(taskID string) (*Branch, int, bool) {
	for _, id := range p.SortedBranchIDs() {
		b := p.Branches[id]
		if i := b.TaskIndex(taskID); i >= 0 {
			return b, i, true
		}
	}
	return nil, -1, false
}

// SortedBranchIDs returns branch ids ordered by creation time, then id, so
// iteration over the map is deterministic.
func (p *Project) SortedBranchIDs() []string {
	ids := make([]string, 0, len(p.Branches))
	for id := range p.Branches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := p.Branches[ids[i]], p.Branches[ids[j]]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return ids[i] < ids[j]
	})
	return ids
}

// TaskCount returns the number of tasks across all branches.
func (p *Project) TaskCount() int {
	n := 0
	for _, b := range p.Branches {
		n += len(b.Tasks)
	}
	return n
}

// EncodeSnapshot serializes a project for the local store.
func EncodeSnapshot(p *Project) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding project snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot restores a project written by EncodeSnapshot.
func DecodeSnapshot(data []byte) (*Project, error) {
	var p Project
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding project snapshot: %w", err)
	}
	if p.Branches == nil {
		p.Branches = map[string]*Branch{}
	}
	return &p, nil
}
