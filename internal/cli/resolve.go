package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
)

type candidate struct {
	id    string
	names []string
	owner string
}

// match resolves input against candidates: exact id, then a unique
// case-insensitive name, then a unique id prefix.
func match(kind, input string, cands []candidate) (candidate, error) {
	if input == "" {
		return candidate{}, fmt.Errorf("%s id is required", kind)
	}
	for _, c := range cands {
		if c.id == input {
			return c, nil
		}
	}

	pick := func(hits []candidate, how string) (candidate, bool, error) {
		switch len(hits) {
		case 0:
			return candidate{}, false, nil
		case 1:
			return hits[0], true, nil
		default:
			return candidate{}, false, fmt.Errorf("%s %s %q is ambiguous (%d matches)", kind, how, input, len(hits))
		}
	}

	var byName []candidate
	for _, c := range cands {
		for _, n := range c.names {
			if n != "" && strings.EqualFold(n, input) {
				byName = append(byName, c)
				break
			}
		}
	}
	if c, ok, err := pick(byName, "name"); ok || err != nil {
		return c, err
	}

	var byPrefix []candidate
	for _, c := range cands {
		if strings.HasPrefix(c.id, input) {
			byPrefix = append(byPrefix, c)
		}
	}
	if c, ok, err := pick(byPrefix, "id prefix"); ok || err != nil {
		return c, err
	}
	return candidate{}, fmt.Errorf("%s not found: %q", kind, input)
}

// resolveProjectID matches input against open tabs and local snapshots.
// With allowUnknown an unmatched input is returned as-is, for projects that
// only exist remotely.
func resolveProjectID(ctx context.Context, app *App, input string, allowUnknown bool) (string, error) {
	local, err := app.ws().ListLocalProjects(ctx)
	if err != nil {
		return "", err
	}
	seen := map[string]bool{}
	var cands []candidate
	for _, p := range append(app.ws().OpenProjects(), local...) {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		cands = append(cands, candidate{id: p.ID, names: []string{p.Name}})
	}
	c, err := match("project", input, cands)
	if err != nil {
		if allowUnknown && input != "" && strings.Contains(err.Error(), "not found") {
			return input, nil
		}
		return "", err
	}
	return c.id, nil
}

// project returns the snapshot selected by --project, or the active tab.
func (a *App) project(ctx context.Context) (*domain.Project, error) {
	id := ""
	if a.opts.ProjectID != "" {
		resolved, err := resolveProjectID(ctx, a, a.opts.ProjectID, false)
		if err != nil {
			return nil, err
		}
		id = resolved
	}
	return a.ws().Project(id)
}

func resolveBranchID(p *domain.Project, input string) (string, error) {
	if strings.EqualFold(input, "root") {
		return p.RootBranchID, nil
	}
	cands := make([]candidate, 0, len(p.Branches))
	for _, id := range p.SortedBranchIDs() {
		cands = append(cands, candidate{id: id, names: []string{p.Branches[id].Title}})
	}
	c, err := match("branch", input, cands)
	return c.id, err
}

// resolveTask returns the owning branch and the task id.
func resolveTask(p *domain.Project, input string) (branchID, taskID string, err error) {
	var cands []candidate
	for _, bid := range p.SortedBranchIDs() {
		for _, t := range p.Branches[bid].Tasks {
			cands = append(cands, candidate{id: t.ID, names: []string{t.Title}, owner: bid})
		}
	}
	c, err := match("task", input, cands)
	return c.owner, c.id, err
}

func resolvePersonID(p *domain.Project, input string) (string, error) {
	cands := make([]candidate, 0, len(p.People))
	for _, person := range p.People {
		cands = append(cands, candidate{id: person.ID, names: []string{person.Name, person.Initials}})
	}
	c, err := match("person", input, cands)
	return c.id, err
}
