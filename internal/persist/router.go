// Package persist decides where a mutated snapshot goes: the local store,
// the sync queue, or both, and writes it in one local transaction.
package persist

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexanderramin/arbor/internal/db"
	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/metrics"
	"github.com/alexanderramin/arbor/internal/remote"
	"github.com/alexanderramin/arbor/internal/repository"
)

// Plan is the routing decision for one save.
type Plan struct {
	SaveSnapshot bool
	Enqueue      bool
	DrainNow     bool
}

// Route picks the persistence path. Without a remote only the snapshot is
// written. With a remote every change is enqueued; offline the snapshot is
// always written too, online only when snapshots are cached.
func Route(offline, remoteEnabled, cacheSnapshots bool) Plan {
	switch {
	case !remoteEnabled:
		return Plan{SaveSnapshot: true}
	case offline:
		return Plan{SaveSnapshot: true, Enqueue: true}
	default:
		return Plan{SaveSnapshot: cacheSnapshots, Enqueue: true, DrainNow: true}
	}
}

// Link is the router's view of the sync engine.
type Link interface {
	Online() bool
	Nudge()
}

type Options struct {
	RemoteEnabled  bool
	CacheSnapshots bool
	// ForceOffline keeps the router on the offline path regardless of the
	// link's reachability.
	ForceOffline bool
	OwnerID      string
}

type Router struct {
	uow    db.UnitOfWork
	link   Link
	opts   Options
	logger *slog.Logger
}

// NewRouter builds a router. link may be nil when no remote is configured.
func NewRouter(uow db.UnitOfWork, link Link, opts Options, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	if link == nil {
		opts.RemoteEnabled = false
	}
	return &Router{uow: uow, link: link, opts: opts, logger: logger}
}

// SetOwner updates the owner stamped on queued project rows.
func (r *Router) SetOwner(ownerID string) { r.opts.OwnerID = ownerID }

func (r *Router) plan() Plan {
	offline := r.opts.ForceOffline || r.link == nil || !r.link.Online()
	return Route(offline, r.opts.RemoteEnabled, r.opts.CacheSnapshots)
}

// Save persists snapshot p and the changes that produced it. Queue entries
// are written before the snapshot; both commit or roll back together.
func (r *Router) Save(ctx context.Context, p *domain.Project, changes []domain.Change) (Plan, error) {
	if len(changes) == 0 {
		return Plan{}, nil
	}
	plan := r.plan()

	var entries []*domain.SyncEntry
	if plan.Enqueue {
		for _, c := range changes {
			row, err := remote.RowFor(p, r.opts.OwnerID, c)
			if err != nil {
				r.logger.Warn("skipping unroutable change",
					"project_id", p.ID, "kind", c.Kind, "entity_id", c.EntityID, "error", err)
				continue
			}
			e, err := entryFor(p.ID, c.Action, row)
			if err != nil {
				return plan, err
			}
			entries = append(entries, e)
		}
	}

	if err := r.write(ctx, p, plan.SaveSnapshot, entries); err != nil {
		return plan, err
	}
	r.afterWrite(plan, entries)
	return plan, nil
}

// SaveAll enqueues every row of the project in dependency order, for a
// manual upload. The snapshot is written as well.
func (r *Router) SaveAll(ctx context.Context, p *domain.Project) error {
	if !r.opts.RemoteEnabled {
		return fmt.Errorf("uploading %s: %w", p.ID, ErrNoRemote)
	}
	var entries []*domain.SyncEntry
	for _, row := range remote.GraphRows(p, r.opts.OwnerID) {
		e, err := entryFor(p.ID, domain.ActionUpsert, row)
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if err := r.write(ctx, p, true, entries); err != nil {
		return err
	}
	r.afterWrite(Plan{Enqueue: true, DrainNow: true}, entries)
	return nil
}

// SaveSnapshot writes only the local snapshot, as after a download.
func (r *Router) SaveSnapshot(ctx context.Context, p *domain.Project) error {
	return r.write(ctx, p, true, nil)
}

// Forget removes the local snapshot of a project. Queued entries stay so a
// pending delete still reaches the remote.
func (r *Router) Forget(ctx context.Context, projectID string) error {
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteProjectRepo(tx).Delete(ctx, projectID)
	})
}

func (r *Router) write(ctx context.Context, p *domain.Project, snapshot bool, entries []*domain.SyncEntry) error {
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		queue := repository.NewSQLiteSyncQueueRepo(tx)
		for _, e := range entries {
			if err := queue.Enqueue(ctx, e); err != nil {
				return err
			}
		}
		if snapshot {
			return repository.NewSQLiteProjectRepo(tx).Save(ctx, p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("persisting project %s: %w", p.ID, err)
	}
	return nil
}

func (r *Router) afterWrite(plan Plan, entries []*domain.SyncEntry) {
	for _, e := range entries {
		metrics.RecordEnqueue(string(e.Table), string(e.Action))
	}
	if plan.DrainNow && r.link != nil && len(entries) > 0 {
		r.link.Nudge()
	}
}

func entryFor(projectID string, action domain.SyncAction, row remote.Row) (*domain.SyncEntry, error) {
	payload, err := remote.EncodeRow(row)
	if err != nil {
		return nil, err
	}
	return &domain.SyncEntry{
		ProjectID: projectID,
		Table:     row.Table(),
		EntityID:  row.RowID(),
		Action:    action,
		Payload:   payload,
	}, nil
}
