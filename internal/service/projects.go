package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/persist"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/syncer"
)

// CreateProject builds a project with a fresh root, opens it and makes it
// active.
func (w *Workspace) CreateProject(ctx context.Context, name string) (p *domain.Project, err error) {
	start := time.Now()
	defer func() {
		id := ""
		if p != nil {
			id = p.ID
		}
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "create_project", ProjectID: id, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err,
		})
	}()

	res, err := w.mut.NewProject(name)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.persist(ctx, res.Project, res.Changes)
	w.addTab(res.Project)
	w.active = res.Project.ID
	return res.Project, w.saveTabs(ctx)
}

// ListLocalProjects lists the snapshots in the local store.
func (w *Workspace) ListLocalProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	return w.projects.List(ctx)
}

// ListRemoteProjects lists the owner's projects on the remote.
func (w *Workspace) ListRemoteProjects(ctx context.Context) ([]domain.ProjectSummary, error) {
	if err := w.requireRemote(); err != nil {
		return nil, err
	}
	out, err := w.remote.ListProjects(ctx, w.owner)
	if err != nil {
		return nil, fmt.Errorf("listing remote projects: %w", err)
	}
	return out, nil
}

// DownloadProject replaces the local snapshot with the remote graph. An open
// tab is refreshed in place.
func (w *Workspace) DownloadProject(ctx context.Context, projectID string) (p *domain.Project, err error) {
	start := time.Now()
	defer func() {
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "download_project", ProjectID: projectID, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err,
		})
	}()
	if err := w.requireRemote(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, err = w.download(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if _, ok := w.open[p.ID]; ok {
		w.open[p.ID] = p
	}
	return p, nil
}

func (w *Workspace) download(ctx context.Context, projectID string) (*domain.Project, error) {
	graph, err := w.remote.FetchProjectGraph(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("downloading %s: %w", projectID, err)
	}
	p := graph.Snapshot()
	if err := w.router.SaveSnapshot(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// UploadProject queues every row of the project for the remote, for a
// manual full save.
func (w *Workspace) UploadProject(ctx context.Context, projectID string) (err error) {
	start := time.Now()
	defer func() {
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "upload_project", ProjectID: projectID, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err,
		})
	}()
	if err := w.requireRemote(); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	p, err := w.current(projectID)
	if errors.Is(err, ErrProjectNotOpen) {
		p, err = w.projects.GetByID(ctx, projectID)
	}
	if err != nil {
		return err
	}
	return w.router.SaveAll(ctx, p)
}

// DeleteProject soft-deletes the project remotely, drops its queued writes
// and local snapshot, and closes its tab. A project the remote never saw is
// deleted locally only.
func (w *Workspace) DeleteProject(ctx context.Context, projectID string) (err error) {
	start := time.Now()
	defer func() {
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "delete_project", ProjectID: projectID, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err,
		})
	}()

	if w.remote != nil {
		err := w.remote.SoftDelete(ctx, domain.TableProjects, projectID)
		if err != nil && !errors.Is(err, remote.ErrNotFound) {
			return fmt.Errorf("deleting remote project %s: %w", projectID, err)
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.dropQueued(ctx, projectID); err != nil {
		return err
	}
	if err := w.router.Forget(ctx, projectID); err != nil {
		return fmt.Errorf("deleting local project %s: %w", projectID, err)
	}
	w.closeTab(projectID)
	return w.saveTabs(ctx)
}

func (w *Workspace) dropQueued(ctx context.Context, projectID string) error {
	entries, err := w.queue.ListByProject(ctx, projectID)
	if err != nil {
		return fmt.Errorf("listing queued writes of %s: %w", projectID, err)
	}
	for _, e := range entries {
		if _, err := w.queue.Remove(ctx, e.ID, e.Revision); err != nil {
			return fmt.Errorf("dropping queued write %d: %w", e.ID, err)
		}
	}
	return nil
}

func (w *Workspace) requireRemote() error {
	if w.remote == nil {
		return persist.ErrNoRemote
	}
	if w.owner == "" {
		return syncer.ErrNotAuthenticated
	}
	return nil
}
