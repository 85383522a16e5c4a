package domain

type BranchStatus string

const (
	StatusPlanned   BranchStatus = "PLANNED"
	StatusActive    BranchStatus = "ACTIVE"
	StatusStandby   BranchStatus = "STANDBY"
	StatusClosed    BranchStatus = "CLOSED"
	StatusCancelled BranchStatus = "CANCELLED"
)

// ValidBranchStatuses is the canonical set of accepted branch status strings.
// The mutation core never validates against it; callers do.
var ValidBranchStatuses = map[string]bool{
	"PLANNED": true, "ACTIVE": true, "STANDBY": true,
	"CLOSED": true, "CANCELLED": true,
}

// EntityKind names the kind of entity a mutation touched.
type EntityKind string

const (
	KindProject EntityKind = "project"
	KindPerson  EntityKind = "person"
	KindBranch  EntityKind = "branch"
	KindTask    EntityKind = "task"
)

// Table is a remote table name. Sync queue entries are keyed by it.
type Table string

const (
	TableProjects Table = "projects"
	TablePeople   Table = "people"
	TableBranches Table = "branches"
	TableTasks    Table = "tasks"
)

// Table returns the remote table that stores entities of kind k.
func (k EntityKind) Table() Table {
	switch k {
	case KindProject:
		return TableProjects
	case KindPerson:
		return TablePeople
	case KindBranch:
		return TableBranches
	case KindTask:
		return TableTasks
	default:
		return ""
	}
}

type SyncAction string

const (
	ActionUpsert SyncAction = "upsert"
	ActionDelete SyncAction = "delete"
)

// SyncStatus is the aggregate state of the background sync.
type SyncStatus string

const (
	SyncIdle   SyncStatus = "idle"
	SyncSaving SyncStatus = "saving"
	SyncSaved  SyncStatus = "saved"
	SyncError  SyncStatus = "error"
)
