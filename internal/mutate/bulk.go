package mutate

import (
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

// ParseTaskLines splits a text block into trimmed, non-empty task titles.
func ParseTaskLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// BulkUpdateTasks replaces the branch's task list by title. Each line reuses
// the first not-yet-claimed existing task whose title matches exactly, in
// list order; unmatched lines become new tasks and unclaimed tasks are
// deleted. Repeated titles therefore map to distinct tasks, and applying
// the same text twice leaves the task ids unchanged.
func (m *Mutator) BulkUpdateTasks(p *domain.Project, branchID, text string) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	lines := ParseTaskLines(text)
	existing := b.Tasks
	claimed := make([]bool, len(existing))

	t := m.begin(p)
	be := t.edit(branchID)
	next := make([]domain.Task, 0, len(lines))
	var touch []int
	for pos, line := range lines {
		match := -1
		for j := range existing {
			if !claimed[j] && existing[j].Title == line {
				match = j
				break
			}
		}
		if match < 0 {
			task := m.newTask(t, p, branchID, line, pos)
			next = append(next, task)
			t.record(domain.Upsert(domain.KindTask, task.ID, branchID))
			continue
		}
		claimed[match] = true
		task := existing[match]
		if task.Position != pos {
			task.Position = pos
			touch = append(touch, pos)
		}
		next = append(next, task)
	}

	be.Tasks = next
	for _, pos := range touch {
		t.touchTask(be, pos)
	}
	for j, ok := range claimed {
		if !ok {
			t.record(domain.Delete(domain.KindTask, existing[j].ID, branchID))
		}
	}
	return t.result(""), nil
}
