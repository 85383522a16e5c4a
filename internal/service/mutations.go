package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
)

// apply runs op against a project under the workspace lock, swaps in the
// new snapshot and persists its changes. A stale reference is a silent
// no-op; only validation errors reach the caller.
func (w *Workspace) apply(ctx context.Context, name, projectID string, fields map[string]any, op func(p *domain.Project) (mutate.Result, error)) (res mutate.Result, err error) {
	start := time.Now()
	defer func() {
		if fields == nil {
			fields = map[string]any{}
		}
		fields["changes"] = len(res.Changes)
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: name, ProjectID: projectID, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err, Fields: fields,
		})
	}()

	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.current(projectID)
	if err != nil {
		return mutate.Result{}, err
	}
	projectID = p.ID

	res, err = op(p)
	if errors.Is(err, mutate.ErrNotFound) {
		w.logger.Debug("ignoring mutation on stale reference", "use_case", name, "project_id", p.ID, "error", err)
		return mutate.Result{Project: p}, nil
	}
	if err != nil {
		return mutate.Result{Project: p}, err
	}
	if !res.Changed() {
		return res, nil
	}
	w.open[p.ID] = res.Project
	w.persist(ctx, res.Project, res.Changes)
	return res, nil
}

func (w *Workspace) RenameProject(ctx context.Context, projectID, name string) error {
	_, err := w.apply(ctx, "rename_project", projectID, nil, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.RenameProject(p, name)
	})
	return err
}

// AddBranch creates a child of parentID and returns its id. The id is empty
// when the parent no longer exists.
func (w *Workspace) AddBranch(ctx context.Context, projectID, parentID string) (string, error) {
	res, err := w.apply(ctx, "add_branch", projectID, map[string]any{"parent_id": parentID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.AddBranch(p, parentID)
	})
	return res.CreatedID, err
}

func (w *Workspace) UpdateBranch(ctx context.Context, projectID, branchID string, patch domain.BranchPatch) error {
	_, err := w.apply(ctx, "update_branch", projectID, map[string]any{"branch_id": branchID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.UpdateBranch(p, branchID, patch)
	})
	return err
}

func (w *Workspace) DeleteBranch(ctx context.Context, projectID, branchID string) error {
	_, err := w.apply(ctx, "delete_branch", projectID, map[string]any{"branch_id": branchID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.DeleteBranch(p, branchID)
	})
	return err
}

func (w *Workspace) ToggleBranchArchive(ctx context.Context, projectID, branchID string) error {
	_, err := w.apply(ctx, "toggle_branch_archive", projectID, map[string]any{"branch_id": branchID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.ToggleBranchArchive(p, branchID)
	})
	return err
}

func (w *Workspace) LinkBranch(ctx context.Context, projectID, childID, parentID string) error {
	fields := map[string]any{"branch_id": childID, "parent_id": parentID}
	_, err := w.apply(ctx, "link_branch", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.LinkBranch(p, childID, parentID)
	})
	return err
}

func (w *Workspace) UnlinkBranch(ctx context.Context, projectID, childID, parentID string) error {
	fields := map[string]any{"branch_id": childID, "parent_id": parentID}
	_, err := w.apply(ctx, "unlink_branch", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.UnlinkBranch(p, childID, parentID)
	})
	return err
}

func (w *Workspace) MoveBranch(ctx context.Context, projectID, branchID string, dir mutate.Direction) error {
	fields := map[string]any{"branch_id": branchID, "direction": dir.String()}
	_, err := w.apply(ctx, "move_branch", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.MoveBranch(p, branchID, dir)
	})
	return err
}

// AddTask appends a task to branchID and returns its id.
func (w *Workspace) AddTask(ctx context.Context, projectID, branchID, title string) (string, error) {
	res, err := w.apply(ctx, "add_task", projectID, map[string]any{"branch_id": branchID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.AddTask(p, branchID, title)
	})
	return res.CreatedID, err
}

func (w *Workspace) UpdateTask(ctx context.Context, projectID, branchID, taskID string, patch domain.TaskPatch) error {
	fields := map[string]any{"branch_id": branchID, "task_id": taskID}
	_, err := w.apply(ctx, "update_task", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.UpdateTask(p, branchID, taskID, patch)
	})
	return err
}

func (w *Workspace) ToggleTask(ctx context.Context, projectID, branchID, taskID string) error {
	fields := map[string]any{"branch_id": branchID, "task_id": taskID}
	_, err := w.apply(ctx, "toggle_task", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.ToggleTask(p, branchID, taskID)
	})
	return err
}

func (w *Workspace) DeleteTask(ctx context.Context, projectID, branchID, taskID string) error {
	fields := map[string]any{"branch_id": branchID, "task_id": taskID}
	_, err := w.apply(ctx, "delete_task", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.DeleteTask(p, branchID, taskID)
	})
	return err
}

func (w *Workspace) MoveTask(ctx context.Context, projectID, branchID, taskID string, dir mutate.Direction) error {
	fields := map[string]any{"branch_id": branchID, "task_id": taskID, "direction": dir.String()}
	_, err := w.apply(ctx, "move_task", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.MoveTask(p, branchID, taskID, dir)
	})
	return err
}

func (w *Workspace) MoveTaskToBranch(ctx context.Context, projectID, taskID, sourceID, targetID string) error {
	fields := map[string]any{"task_id": taskID, "source_id": sourceID, "target_id": targetID}
	_, err := w.apply(ctx, "move_task_to_branch", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.MoveTaskToBranch(p, taskID, sourceID, targetID)
	})
	return err
}

func (w *Workspace) BulkMoveTasks(ctx context.Context, projectID string, taskIDs []string, sourceID, targetID string) error {
	fields := map[string]any{"tasks": len(taskIDs), "source_id": sourceID, "target_id": targetID}
	_, err := w.apply(ctx, "bulk_move_tasks", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.BulkMoveTasks(p, taskIDs, sourceID, targetID)
	})
	return err
}

// BulkUpdateTasks replaces the task list of branchID with one task per
// non-blank line of text, reusing tasks whose titles match.
func (w *Workspace) BulkUpdateTasks(ctx context.Context, projectID, branchID, text string) error {
	_, err := w.apply(ctx, "bulk_update_tasks", projectID, map[string]any{"branch_id": branchID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.BulkUpdateTasks(p, branchID, text)
	})
	return err
}

// AddPerson adds a project member and returns its id.
func (w *Workspace) AddPerson(ctx context.Context, projectID string, patch domain.PersonPatch) (string, error) {
	res, err := w.apply(ctx, "add_person", projectID, nil, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.AddPerson(p, patch)
	})
	return res.CreatedID, err
}

func (w *Workspace) UpdatePerson(ctx context.Context, projectID, personID string, patch domain.PersonPatch) error {
	_, err := w.apply(ctx, "update_person", projectID, map[string]any{"person_id": personID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.UpdatePerson(p, personID, patch)
	})
	return err
}

func (w *Workspace) RemovePerson(ctx context.Context, projectID, personID string) error {
	_, err := w.apply(ctx, "remove_person", projectID, map[string]any{"person_id": personID}, func(p *domain.Project) (mutate.Result, error) {
		return w.mut.RemovePerson(p, personID)
	})
	return err
}
