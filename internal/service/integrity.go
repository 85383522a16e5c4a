package service

import (
	"context"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/integrity"
	"github.com/alexanderramin/arbor/internal/mutate"
)

// CheckHealth reports the structural problems of an open project.
func (w *Workspace) CheckHealth(projectID string) (integrity.HealthReport, error) {
	p, err := w.Project(projectID)
	if err != nil {
		return integrity.HealthReport{}, err
	}
	return integrity.CheckHealth(p), nil
}

// RepairStructure restores the root and mutual links, then returns the
// report of what is left, normally only orphans awaiting a decision.
func (w *Workspace) RepairStructure(ctx context.Context, projectID string) (integrity.HealthReport, error) {
	res, err := w.apply(ctx, "repair_structure", projectID, nil, func(p *domain.Project) (mutate.Result, error) {
		return integrity.RepairProjectStructure(w.mut, p)
	})
	if err != nil {
		return integrity.HealthReport{}, err
	}
	return integrity.CheckHealth(res.Project), nil
}

// ResolveOrphans restores orphans under the root or deletes them.
func (w *Workspace) ResolveOrphans(ctx context.Context, projectID string, restoreIDs, deleteIDs []string) (integrity.HealthReport, error) {
	fields := map[string]any{"restore": len(restoreIDs), "delete": len(deleteIDs)}
	res, err := w.apply(ctx, "resolve_orphans", projectID, fields, func(p *domain.Project) (mutate.Result, error) {
		return integrity.ResolveOrphans(w.mut, p, restoreIDs, deleteIDs)
	})
	if err != nil {
		return integrity.HealthReport{}, err
	}
	return integrity.CheckHealth(res.Project), nil
}
