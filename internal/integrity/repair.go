package integrity

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
)

// ErrMissingRoot is returned by ResolveOrphans when there is no root to
// restore branches under. Run RepairProjectStructure first.
var ErrMissingRoot = errors.New("project root branch is missing")

// RepairProjectStructure restores a usable root and mutual links:
//   - a missing root is replaced by the earliest-created parentless branch,
//     or by a fresh root branch when there is none;
//   - dangling references are dropped and one-sided links completed;
//   - legacy roots are linked under the root.
//
// Orphans that are not legacy roots are left for ResolveOrphans.
func RepairProjectStructure(m *mutate.Mutator, p *domain.Project) (mutate.Result, error) {
	acc := mutate.Result{Project: p}

	if _, ok := p.Root(); !ok {
		var (
			step mutate.Result
			err  error
		)
		if id, found := rootCandidate(p); found {
			step, err = m.SetRoot(p, id)
		} else {
			step, err = m.CreateRoot(p)
		}
		if err != nil {
			return mutate.Result{Project: p}, fmt.Errorf("replacing missing root: %w", err)
		}
		acc = acc.Then(step)
	}

	step, err := m.RepairLinks(acc.Project)
	if err != nil {
		return mutate.Result{Project: p}, fmt.Errorf("repairing links: %w", err)
	}
	acc = acc.Then(step)

	rootID := acc.Project.RootBranchID
	legacy := legacyRoots(acc.Project, acc.Project.SortedBranchIDs(), mutate.Reachable(acc.Project))
	for _, id := range legacy {
		step, err := m.LinkBranch(acc.Project, id, rootID)
		if err != nil {
			return mutate.Result{Project: p}, fmt.Errorf("linking legacy root %s: %w", id, err)
		}
		acc = acc.Then(step)
	}
	return acc, nil
}

// ResolveOrphans re-links each restore id directly under the root and
// deletes each delete id. Deletion does not cascade, so children of a
// deleted orphan show up in the next health check. An id in both lists is
// deleted. Ids that no longer resolve are skipped.
func ResolveOrphans(m *mutate.Mutator, p *domain.Project, restoreIDs, deleteIDs []string) (mutate.Result, error) {
	root, ok := p.Root()
	if !ok && len(restoreIDs) > 0 {
		return mutate.Result{Project: p}, ErrMissingRoot
	}

	deleting := make(map[string]bool, len(deleteIDs))
	for _, id := range deleteIDs {
		deleting[id] = true
	}

	acc := mutate.Result{Project: p}
	for _, id := range restoreIDs {
		if deleting[id] {
			continue
		}
		step, err := m.LinkBranch(acc.Project, id, root.ID)
		if errors.Is(err, mutate.ErrNotFound) {
			continue
		}
		if err != nil {
			return mutate.Result{Project: p}, fmt.Errorf("restoring %s: %w", id, err)
		}
		acc = acc.Then(step)
	}
	for _, id := range deleteIDs {
		step, err := m.DeleteBranch(acc.Project, id)
		if errors.Is(err, mutate.ErrNotFound) {
			continue
		}
		if err != nil {
			return mutate.Result{Project: p}, fmt.Errorf("deleting %s: %w", id, err)
		}
		acc = acc.Then(step)
	}
	return acc, nil
}
