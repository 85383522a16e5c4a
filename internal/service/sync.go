package service

import (
	"context"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/persist"
	"github.com/alexanderramin/arbor/internal/syncer"
)

// SyncStatus reports the aggregate sync state. Without a remote it reflects
// local saves only.
func (w *Workspace) SyncStatus(ctx context.Context) (syncer.Status, error) {
	if w.engine != nil {
		return w.engine.Status(ctx)
	}
	queued, err := w.queue.Count(ctx)
	if err != nil {
		return syncer.Status{}, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	st := syncer.Status{State: w.localState, Queued: queued}
	if w.persistErr != nil {
		st.LastError = w.persistErr.Error()
	}
	return st, nil
}

// Drain runs one sync cycle now.
func (w *Workspace) Drain(ctx context.Context) (res syncer.DrainResult, err error) {
	start := time.Now()
	defer func() {
		w.observer.ObserveUseCase(ctx, UseCaseEvent{
			Name: "drain", StartedAt: start, Duration: time.Since(start),
			Success: err == nil, Err: err,
			Fields: map[string]any{"pushed": res.Pushed, "conflicts": res.Conflicts, "failed": res.Failed},
		})
	}()
	if w.engine == nil {
		return syncer.DrainResult{}, persist.ErrNoRemote
	}
	if w.engine.Owner() == "" {
		return syncer.DrainResult{}, syncer.ErrNotAuthenticated
	}
	return w.engine.Drain(ctx)
}

// Queue lists pending remote writes, for one project or all of them.
func (w *Workspace) Queue(ctx context.Context, projectID string) ([]domain.SyncEntry, error) {
	if projectID == "" {
		return w.queue.List(ctx)
	}
	return w.queue.ListByProject(ctx, projectID)
}

// RetryEntry un-parks a queue entry so the next drain pushes it again.
func (w *Workspace) RetryEntry(ctx context.Context, id int64) error {
	if w.engine == nil {
		return persist.ErrNoRemote
	}
	return w.engine.Retry(ctx, id)
}

// Run keeps draining in the background until ctx is cancelled.
func (w *Workspace) Run(ctx context.Context) error {
	if w.engine == nil {
		return persist.ErrNoRemote
	}
	w.engine.Probe(ctx)
	w.engine.Run(ctx)
	return nil
}
