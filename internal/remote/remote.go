// Package remote is the capability boundary to the relational backend.
//
// The sync engine only needs four verbs: upsert a row, soft-delete a row,
// fetch a project graph and list a user's projects. Writes are
// compare-and-swap on the row version; a stale write reports ErrConflict.
package remote

import (
	"context"
	"errors"

	"github.com/alexanderramin/arbor/internal/domain"
)

var (
	// ErrConflict means the remote row is newer than the pushed one, or was
	// deleted. The local change is discarded and server state wins.
	ErrConflict = errors.New("remote row is newer or deleted")

	// ErrNotFound is returned when a project does not exist remotely.
	ErrNotFound = errors.New("remote row not found")

	// ErrUnavailable marks a backend that cannot be reached.
	ErrUnavailable = errors.New("remote unavailable")

	// ErrInvalidRow rejects payloads that do not decode to a valid row.
	ErrInvalidRow = errors.New("invalid remote row")
)

// Adapter is implemented by PostgresAdapter and MemoryAdapter.
type Adapter interface {
	Upsert(ctx context.Context, row Row) error
	SoftDelete(ctx context.Context, table domain.Table, id string) error
	FetchProjectGraph(ctx context.Context, projectID string) (*Graph, error)
	ListProjects(ctx context.Context, ownerID string) ([]domain.ProjectSummary, error)
	Ping(ctx context.Context) error
	Close()
}

// Graph is every live row of one project.
type Graph struct {
	Project  ProjectRow
	People   []PersonRow
	Branches []BranchRow
	Tasks    []TaskRow
}
