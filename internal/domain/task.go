package domain

import "time"

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
	DueDate     string     `json:"dueDate,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	Position    int        `json:"position,omitempty"`
	Pinned      bool       `json:"pinned,omitempty"`
	Version     int        `json:"version,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) Touch(now time.Time) {
	t.UpdatedAt = now
	t.Version++
}

// SetCompleted flips completion and keeps CompletedAt consistent with it.
func (t *Task) SetCompleted(done bool, now time.Time) {
	t.Completed = done
	if done {
		at := now
		t.CompletedAt = &at
		return
	}
	t.CompletedAt = nil
}
