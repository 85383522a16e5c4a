package mutate

import "github.com/alexanderramin/arbor/internal/domain"

// InheritedResponsible walks the first-parent chain starting at branchID and
// returns the first ResponsibleID found, or "" if none. Cycles and dangling
// parent ids end the walk.
func InheritedResponsible(p *domain.Project, branchID string) string {
	visited := map[string]bool{}
	cur := branchID
	for {
		b, ok := p.Branches[cur]
		if !ok || visited[cur] {
			return ""
		}
		visited[cur] = true
		if b.ResponsibleID != "" {
			return b.ResponsibleID
		}
		if len(b.ParentIDs) == 0 {
			return ""
		}
		cur = b.ParentIDs[0]
	}
}

// IsDescendant reports whether target is reachable from ancestorID by
// following ChildrenIDs. A branch is not its own descendant.
func IsDescendant(p *domain.Project, ancestorID, target string) bool {
	start, ok := p.Branches[ancestorID]
	if !ok {
		return false
	}
	visited := map[string]bool{ancestorID: true}
	stack := append([]string(nil), start.ChildrenIDs...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if visited[id] {
			continue
		}
		visited[id] = true
		if b, ok := p.Branches[id]; ok {
			stack = append(stack, b.ChildrenIDs...)
		}
	}
	return false
}

// Reachable returns the set of branch ids reachable from the root via
// ChildrenIDs, the root included. Empty when the root does not resolve.
func Reachable(p *domain.Project) map[string]bool {
	seen := map[string]bool{}
	root, ok := p.Root()
	if !ok {
		return seen
	}
	queue := []string{root.ID}
	seen[root.ID] = true
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		b, ok := p.Branches[id]
		if !ok {
			continue
		}
		for _, child := range b.ChildrenIDs {
			if _, exists := p.Branches[child]; !exists || seen[child] {
				continue
			}
			seen[child] = true
			queue = append(queue, child)
		}
	}
	return seen
}
