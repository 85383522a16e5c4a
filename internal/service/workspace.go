// Package service holds the Workspace: the session object that owns the open
// projects, applies mutations to them and hands the results to persistence.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/alexanderramin/arbor/internal/persist"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/repository"
	"github.com/alexanderramin/arbor/internal/syncer"
)

var (
	// ErrNoActiveProject is returned when an operation needs the active
	// project and no tab is open.
	ErrNoActiveProject = errors.New("no active project")

	// ErrProjectNotOpen is returned for a project id that has no open tab.
	ErrProjectNotOpen = errors.New("project is not open")
)

// Deps wires a Workspace. Engine and Remote are nil when no remote is
// configured.
type Deps struct {
	Projects repository.ProjectRepo
	Settings repository.SettingsRepo
	Queue    repository.SyncQueueRepo
	Router   *persist.Router
	Engine   *syncer.Engine
	Remote   remote.Adapter
	Mutator  *mutate.Mutator
	OwnerID  string
	Logger   *slog.Logger
}

// Workspace is the per-session sync context. All mutations run under one
// mutex, so each is applied and handed to the router before the next starts.
// Snapshots returned to callers are shared and must be treated as read-only.
type Workspace struct {
	projects repository.ProjectRepo
	settings repository.SettingsRepo
	queue    repository.SyncQueueRepo
	router   *persist.Router
	engine   *syncer.Engine
	remote   remote.Adapter
	mut      *mutate.Mutator
	owner    string
	logger   *slog.Logger
	observer UseCaseObserver

	mu         sync.Mutex
	open       map[string]*domain.Project
	order      []string
	active     string
	localState domain.SyncStatus
	persistErr error
}

func NewWorkspace(deps Deps, observers ...UseCaseObserver) *Workspace {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mut := deps.Mutator
	if mut == nil {
		mut = mutate.New()
	}
	return &Workspace{
		projects:   deps.Projects,
		settings:   deps.Settings,
		queue:      deps.Queue,
		router:     deps.Router,
		engine:     deps.Engine,
		remote:     deps.Remote,
		mut:        mut,
		owner:      deps.OwnerID,
		logger:     logger,
		observer:   useCaseObserverOrNoop(observers),
		open:       make(map[string]*domain.Project),
		localState: domain.SyncIdle,
	}
}

// Owner returns the owner id remote rows are scoped to.
func (w *Workspace) Owner() string { return w.owner }

// RemoteEnabled reports whether a remote adapter is wired.
func (w *Workspace) RemoteEnabled() bool { return w.remote != nil }

// Restore reopens the tabs recorded by the previous session. Projects that
// can no longer be loaded are dropped from the tab list.
func (w *Workspace) Restore(ctx context.Context) error {
	start := time.Now()
	var ids []string
	var activeID string
	err := w.settings.Get(ctx, repository.SettingOpenProjects, &ids)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("restoring tabs: %w", err)
	}
	if err := w.settings.Get(ctx, repository.SettingActiveProject, &activeID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("restoring active project: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, id := range ids {
		p, err := w.load(ctx, id)
		if err != nil {
			w.logger.Warn("dropping tab that could not be loaded", "project_id", id, "error", err)
			continue
		}
		w.addTab(p)
	}
	if _, ok := w.open[activeID]; ok {
		w.active = activeID
	} else if len(w.order) > 0 {
		w.active = w.order[0]
	}

	w.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      "restore_workspace",
		ProjectID: w.active,
		StartedAt: start,
		Duration:  time.Since(start),
		Success:   true,
		Fields:    map[string]any{"tabs": len(w.order)},
	})
	return w.saveTabs(ctx)
}

// OpenProject opens a tab for the project and makes it active. The local
// snapshot is preferred; without one the project is downloaded.
func (w *Workspace) OpenProject(ctx context.Context, projectID string) (p *domain.Project, err error) {
	start := time.Now()
	defer func() {
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "open_project", ProjectID: projectID, StartedAt: start,
			Duration: time.Since(start), Success: err == nil, Err: err,
		})
	}()

	w.mu.Lock()
	defer w.mu.Unlock()
	if open, ok := w.open[projectID]; ok {
		w.active = projectID
		return open, w.saveTabs(ctx)
	}
	p, err = w.load(ctx, projectID)
	if err != nil {
		return nil, err
	}
	w.addTab(p)
	w.active = p.ID
	return p, w.saveTabs(ctx)
}

// CloseProject closes a tab. Closing the active tab activates its left
// neighbour, or the right one when it was first.
func (w *Workspace) CloseProject(ctx context.Context, projectID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.open[projectID]; !ok {
		return fmt.Errorf("closing %s: %w", projectID, ErrProjectNotOpen)
	}
	w.closeTab(projectID)
	return w.saveTabs(ctx)
}

// SetActive switches the active tab.
func (w *Workspace) SetActive(ctx context.Context, projectID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.open[projectID]; !ok {
		return fmt.Errorf("activating %s: %w", projectID, ErrProjectNotOpen)
	}
	w.active = projectID
	return w.saveTabs(ctx)
}

// Active returns the active project snapshot.
func (w *Workspace) Active() (*domain.Project, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.open[w.active]
	return p, ok
}

// Project returns the open snapshot for id, or the active one for "".
func (w *Workspace) Project(projectID string) (*domain.Project, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current(projectID)
}

// OpenProjects lists the open tabs in tab order.
func (w *Workspace) OpenProjects() []domain.ProjectSummary {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.ProjectSummary, 0, len(w.order))
	for _, id := range w.order {
		p := w.open[id]
		out = append(out, domain.ProjectSummary{ID: p.ID, Name: p.Name, CreatedAt: p.CreatedAt, UpdatedAt: p.UpdatedAt})
	}
	return out
}

// ActiveID returns the id of the active tab, or "".
func (w *Workspace) ActiveID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// current resolves projectID, or the active tab for "". Callers hold mu.
func (w *Workspace) current(projectID string) (*domain.Project, error) {
	if projectID == "" {
		if w.active == "" {
			return nil, ErrNoActiveProject
		}
		projectID = w.active
	}
	p, ok := w.open[projectID]
	if !ok {
		return nil, fmt.Errorf("project %s: %w", projectID, ErrProjectNotOpen)
	}
	return p, nil
}

func (w *Workspace) load(ctx context.Context, projectID string) (*domain.Project, error) {
	p, err := w.projects.GetByID(ctx, projectID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) || w.remote == nil {
		return nil, err
	}
	w.logger.Info("no local snapshot, downloading", "project_id", projectID)
	return w.download(ctx, projectID)
}

func (w *Workspace) addTab(p *domain.Project) {
	if _, ok := w.open[p.ID]; !ok {
		w.order = append(w.order, p.ID)
	}
	w.open[p.ID] = p
}

func (w *Workspace) closeTab(projectID string) {
	idx := slices.Index(w.order, projectID)
	if idx < 0 {
		return
	}
	delete(w.open, projectID)
	w.order = slices.Delete(w.order, idx, idx+1)
	if w.active != projectID {
		return
	}
	switch {
	case len(w.order) == 0:
		w.active = ""
	case idx > 0:
		w.active = w.order[idx-1]
	default:
		w.active = w.order[0]
	}
}

func (w *Workspace) saveTabs(ctx context.Context) error {
	if err := w.settings.Set(ctx, repository.SettingOpenProjects, w.order); err != nil {
		return err
	}
	if w.active == "" {
		return w.settings.Delete(ctx, repository.SettingActiveProject)
	}
	return w.settings.Set(ctx, repository.SettingActiveProject, w.active)
}

// persist hands a mutation result to the router. A failure is logged and
// reflected in the sync status; the in-memory snapshot stays authoritative.
// Callers hold mu.
func (w *Workspace) persist(ctx context.Context, p *domain.Project, changes []domain.Change) {
	if _, err := w.router.Save(ctx, p, changes); err != nil {
		w.logger.Error("persisting mutation failed", "project_id", p.ID, "changes", len(changes), "error", err)
		w.persistErr = err
		w.localState = domain.SyncError
		if w.engine != nil {
			w.engine.MarkError(err)
		}
		return
	}
	w.persistErr = nil
	w.localState = domain.SyncSaved
}

// PersistError returns the last local persistence failure, cleared by the
// next successful save.
func (w *Workspace) PersistError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.persistErr
}
