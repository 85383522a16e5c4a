package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
)

// ProjectRepo persists whole-project snapshots.
type ProjectRepo interface {
	Save(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.ProjectSummary, error)
	Delete(ctx context.Context, id string) error
}

// SettingsRepo stores small JSON-encoded values by key.
type SettingsRepo interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Failure is the retry state recorded after a failed push.
type Failure struct {
	Attempts      int
	NextAttemptAt *time.Time
	LastError     string
	Parked        bool
}

// SyncQueueRepo is the durable queue of pending remote writes, ordered by id.
type SyncQueueRepo interface {
	Enqueue(ctx context.Context, e *domain.SyncEntry) error
	List(ctx context.Context) ([]domain.SyncEntry, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.SyncEntry, error)
	Get(ctx context.Context, id int64) (*domain.SyncEntry, error)
	Remove(ctx context.Context, id int64, revision int) (bool, error)
	RemoveSuperseded(ctx context.Context, table domain.Table, entityID string, beforeID int64) (int, error)
	MarkFailed(ctx context.Context, id int64, f Failure) error
	Retry(ctx context.Context, id int64) error
	Count(ctx context.Context) (int, error)
	CountParked(ctx context.Context) (int, error)
}
