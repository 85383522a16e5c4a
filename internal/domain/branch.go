package domain

import "time"

type Branch struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	Status        BranchStatus `json:"status"`
	IsLabel       bool         `json:"isLabel,omitempty"`
	IsSprint      bool         `json:"isSprint,omitempty"`
	SprintCounter int          `json:"sprintCounter,omitempty"`
	ResponsibleID string       `json:"responsibleId,omitempty"`
	StartDate     string       `json:"startDate,omitempty"`
	EndDate       string       `json:"endDate,omitempty"`
	DueDate       string       `json:"dueDate,omitempty"`
	Tasks         []Task       `json:"tasks"`
	ChildrenIDs   []string     `json:"childrenIds"`
	ParentIDs     []string     `json:"parentIds"`
	Archived      bool         `json:"archived,omitempty"`
	Collapsed     bool         `json:"collapsed,omitempty"`
	Position      int          `json:"position,omitempty"`
	Version       int          `json:"version,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Clone returns a copy whose slices can be changed without affecting b.
func (b *Branch) Clone() *Branch {
	cp := *b
	cp.Tasks = append([]Task(nil), b.Tasks...)
	cp.ChildrenIDs = append([]string(nil), b.ChildrenIDs...)
	cp.ParentIDs = append([]string(nil), b.ParentIDs...)
	return &cp
}

func (b *Branch) HasParent(id string) bool { return indexOf(b.ParentIDs, id) >= 0 }

func (b *Branch) HasChild(id string) bool { return indexOf(b.ChildrenIDs, id) >= 0 }

// TaskIndex returns the position of taskID in b.Tasks, or -1.
func (b *Branch) TaskIndex(taskID string) int {
	for i := range b.Tasks {
		if b.Tasks[i].ID == taskID {
			return i
		}
	}
	return -1
}

// Touch stamps the branch as changed at now.
func (b *Branch) Touch(now time.Time) {
	b.UpdatedAt = now
	b.Version++
}

// RemoveID returns ids without any occurrence of id.
func RemoveID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func indexOf(ids []string, id string) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
