// Package integrity diagnoses and repairs the structure of a project graph.
//
// CheckHealth is read-only. Repairs are explicit calls that route through
// the mutate package, so their changes are persisted like any other edit.
package integrity

import (
	"sort"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
)

// LegacyRootID is the fixed root id used by early project files.
const LegacyRootID = "root"

// OrphanInfo describes a branch that cannot be reached from the root.
type OrphanInfo struct {
	ID        string
	Title     string
	Status    domain.BranchStatus
	TaskCount int
}

// RefField names the link list a dangling reference was found in.
type RefField string

const (
	FieldChildren RefField = "children"
	FieldParents  RefField = "parents"
)

// DanglingRef is a parent/child reference that is missing its target or
// is not mirrored on the other side.
type DanglingRef struct {
	BranchID string
	Field    RefField
	RefID    string
	// Missing is true when RefID does not resolve; otherwise the link is
	// one-sided.
	Missing bool
}

type HealthReport struct {
	LegacyRootFound  bool
	LegacyRootIDs    []string
	MissingRootNode  bool
	OrphanedBranches []OrphanInfo
	DanglingRefs     []DanglingRef
}

// Healthy reports whether the check found nothing to repair.
func (r HealthReport) Healthy() bool {
	return !r.LegacyRootFound && !r.MissingRootNode &&
		len(r.OrphanedBranches) == 0 && len(r.DanglingRefs) == 0
}

// OrphanIDs returns the ids of the orphaned branches in report order.
func (r HealthReport) OrphanIDs() []string {
	ids := make([]string, len(r.OrphanedBranches))
	for i, o := range r.OrphanedBranches {
		ids[i] = o.ID
	}
	return ids
}

// CheckHealth walks the graph from the root and reports orphans, legacy
// roots and broken references. Output order is deterministic.
func CheckHealth(p *domain.Project) HealthReport {
	var report HealthReport
	_, rootOK := p.Root()
	report.MissingRootNode = !rootOK

	reachable := mutate.Reachable(p)
	ids := p.SortedBranchIDs()
	for _, id := range ids {
		b := p.Branches[id]
		if !reachable[id] {
			report.OrphanedBranches = append(report.OrphanedBranches, OrphanInfo{
				ID:        b.ID,
				Title:     b.Title,
				Status:    b.Status,
				TaskCount: len(b.Tasks),
			})
		}
		report.DanglingRefs = append(report.DanglingRefs, danglingRefs(p, b)...)
	}

	report.LegacyRootIDs = legacyRoots(p, ids, reachable)
	report.LegacyRootFound = len(report.LegacyRootIDs) > 0
	return report
}

// legacyRoots finds branches that look like an abandoned root: a non-root
// parentless branch heading a subtree, or an unreachable branch still
// carrying the old fixed root id while the project points elsewhere.
func legacyRoots(p *domain.Project, sortedIDs []string, reachable map[string]bool) []string {
	var out []string
	for _, id := range sortedIDs {
		if id == p.RootBranchID {
			continue
		}
		b := p.Branches[id]
		if (id == LegacyRootID && !reachable[id]) || (len(b.ParentIDs) == 0 && len(b.ChildrenIDs) > 0) {
			out = append(out, id)
		}
	}
	return out
}

func danglingRefs(p *domain.Project, b *domain.Branch) []DanglingRef {
	var out []DanglingRef
	for _, cid := range b.ChildrenIDs {
		c, ok := p.Branches[cid]
		if !ok || !c.HasParent(b.ID) {
			out = append(out, DanglingRef{BranchID: b.ID, Field: FieldChildren, RefID: cid, Missing: !ok})
		}
	}
	for _, pid := range b.ParentIDs {
		parent, ok := p.Branches[pid]
		if !ok || !parent.HasChild(b.ID) {
			out = append(out, DanglingRef{BranchID: b.ID, Field: FieldParents, RefID: pid, Missing: !ok})
		}
	}
	return out
}

// rootCandidate picks the earliest-created parentless branch, ties broken
// by id.
func rootCandidate(p *domain.Project) (string, bool) {
	var candidates []*domain.Branch
	for _, b := range p.Branches {
		if len(b.ParentIDs) == 0 {
			candidates = append(candidates, b)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return candidates[0].ID, true
}
