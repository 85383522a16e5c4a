package mutate

import (
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

// AddTask appends a task to the branch. The assignee defaults to the
// nearest responsible person up the first-parent chain.
func (m *Mutator) AddTask(p *domain.Project, branchID, title string) (Result, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return unchanged(p), ErrEmptyTitle
	}
	if _, ok := p.Branches[branchID]; !ok {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	b := t.edit(branchID)
	t.renumberTasks(b)
	task := m.newTask(t, p, branchID, title, len(b.Tasks))
	b.Tasks = append(b.Tasks, task)
	t.record(domain.Upsert(domain.KindTask, task.ID, branchID))
	return t.result(task.ID), nil
}

func (m *Mutator) newTask(t *txn, p *domain.Project, branchID, title string, position int) domain.Task {
	task := domain.Task{
		ID:         m.NewID(),
		Title:      title,
		AssigneeID: InheritedResponsible(p, branchID),
		Position:   position,
		Version:    1,
		UpdatedAt:  t.now,
	}
	t.touched[key(domain.KindTask, task.ID)] = true
	return task
}

// UpdateTask merges patch into a task of the given branch.
func (m *Mutator) UpdateTask(p *domain.Project, branchID, taskID string, patch domain.TaskPatch) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok || b.TaskIndex(taskID) < 0 {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	be := t.edit(branchID)
	i := be.TaskIndex(taskID)
	changed, completion := patch.Apply(&be.Tasks[i])
	if !changed {
		return unchanged(p), nil
	}
	if completion {
		be.Tasks[i].SetCompleted(*patch.Completed, t.now)
	}
	t.touchTask(be, i)
	return t.result(""), nil
}

// ToggleTask flips the completion flag of a task.
func (m *Mutator) ToggleTask(p *domain.Project, branchID, taskID string) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	i := b.TaskIndex(taskID)
	if i < 0 {
		return unchanged(p), ErrNotFound
	}
	done := !b.Tasks[i].Completed
	return m.UpdateTask(p, branchID, taskID, domain.TaskPatch{Completed: &done})
}

// DeleteTask removes a task from its branch and closes the gap it leaves
// in the positions of the tasks after it.
func (m *Mutator) DeleteTask(p *domain.Project, branchID, taskID string) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok || b.TaskIndex(taskID) < 0 {
		return unchanged(p), ErrNotFound
	}
	t := m.begin(p)
	be := t.edit(branchID)
	i := be.TaskIndex(taskID)
	be.Tasks = append(be.Tasks[:i], be.Tasks[i+1:]...)
	t.record(domain.Delete(domain.KindTask, taskID, branchID))
	t.renumberTasks(be)
	return t.result(""), nil
}

// MoveTask swaps a task with its neighbour inside one branch.
func (m *Mutator) MoveTask(p *domain.Project, branchID, taskID string, dir Direction) (Result, error) {
	b, ok := p.Branches[branchID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	i := b.TaskIndex(taskID)
	if i < 0 {
		return unchanged(p), ErrNotFound
	}
	j := i + int(dir)
	if j < 0 || j >= len(b.Tasks) {
		return unchanged(p), nil
	}
	t := m.begin(p)
	be := t.edit(branchID)
	be.Tasks[i], be.Tasks[j] = be.Tasks[j], be.Tasks[i]
	be.Tasks[i].Position = i
	be.Tasks[j].Position = j
	t.touchTask(be, i)
	t.touchTask(be, j)
	return t.result(""), nil
}

// MoveTaskToBranch removes a task from source and appends it to target.
func (m *Mutator) MoveTaskToBranch(p *domain.Project, taskID, sourceID, targetID string) (Result, error) {
	return m.BulkMoveTasks(p, []string{taskID}, sourceID, targetID)
}

// BulkMoveTasks moves the listed tasks, in list order, from source to the
// tail of target. Ids not present in source are ignored.
func (m *Mutator) BulkMoveTasks(p *domain.Project, taskIDs []string, sourceID, targetID string) (Result, error) {
	src, ok := p.Branches[sourceID]
	if !ok {
		return unchanged(p), ErrNotFound
	}
	if _, ok := p.Branches[targetID]; !ok {
		return unchanged(p), ErrNotFound
	}
	if sourceID == targetID {
		return unchanged(p), nil
	}

	found := false
	for _, id := range taskIDs {
		if src.TaskIndex(id) >= 0 {
			found = true
			break
		}
	}
	if !found {
		if len(taskIDs) == 1 {
			return unchanged(p), ErrNotFound
		}
		return unchanged(p), nil
	}

	t := m.begin(p)
	se := t.edit(sourceID)
	te := t.edit(targetID)
	t.renumberTasks(te)
	for _, id := range taskIDs {
		i := se.TaskIndex(id)
		if i < 0 {
			continue
		}
		task := se.Tasks[i]
		se.Tasks = append(se.Tasks[:i], se.Tasks[i+1:]...)
		task.Position = len(te.Tasks)
		te.Tasks = append(te.Tasks, task)
		t.touchTask(te, len(te.Tasks)-1)
	}
	t.renumberTasks(se)
	return t.result(""), nil
}
