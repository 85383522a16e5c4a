package syncer

import "github.com/alexanderramin/arbor/internal/domain"

// Notifier receives engine events. Callbacks run on the draining goroutine
// and must not block.
type Notifier interface {
	StatusChanged(status domain.SyncStatus)
	Conflict(entry domain.SyncEntry, err error)
}

// NotifierFuncs adapts plain functions to Notifier. Nil fields are skipped.
type NotifierFuncs struct {
	OnStatus   func(domain.SyncStatus)
	OnConflict func(domain.SyncEntry, error)
}

func (n NotifierFuncs) StatusChanged(status domain.SyncStatus) {
	if n.OnStatus != nil {
		n.OnStatus(status)
	}
}

func (n NotifierFuncs) Conflict(entry domain.SyncEntry, err error) {
	if n.OnConflict != nil {
		n.OnConflict(entry, err)
	}
}

type nopNotifier struct{}

func (nopNotifier) StatusChanged(domain.SyncStatus)  {}
func (nopNotifier) Conflict(domain.SyncEntry, error) {}
