package domain

import "time"

// Change records one entity a mutation touched. OwnerID is the owning
// branch for tasks and the project for everything else.
type Change struct {
	Kind     EntityKind
	Action   SyncAction
	EntityID string
	OwnerID  string
}

func Upsert(kind EntityKind, id, owner string) Change {
	return Change{Kind: kind, Action: ActionUpsert, EntityID: id, OwnerID: owner}
}

func Delete(kind EntityKind, id, owner string) Change {
	return Change{Kind: kind, Action: ActionDelete, EntityID: id, OwnerID: owner}
}

// SyncEntry is a pending remote write persisted in the local sync queue.
type SyncEntry struct {
	ID            int64
	ProjectID     string
	Table         Table
	EntityID      string
	Action        SyncAction
	Payload       []byte
	Revision      int
	Attempts      int
	NextAttemptAt *time.Time
	LastError     string
	Parked        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Due reports whether the entry's backoff window has elapsed.
func (e *SyncEntry) Due(now time.Time) bool {
	return e.NextAttemptAt == nil || !now.Before(*e.NextAttemptAt)
}

// ProjectSummary is the listing shape shared by local and remote stores.
type ProjectSummary struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
