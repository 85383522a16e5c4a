package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// TreeItem represents a single node in a tree display.
type TreeItem struct {
	Title string
	ID    string
	Level int
	// Lasts records, for each level from 1 to Level, whether the node on
	// the path at that level is the last of its siblings.
	Lasts  []bool
	Status string
	Detail string
	Muted  bool
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeSpace  = "   "
)

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Completed items get a green ✔ prefix, active ones an amber ▶,
// and detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix strings.Builder
		for lvl := 1; lvl <= item.Level; lvl++ {
			last := lvl-1 < len(item.Lasts) && item.Lasts[lvl-1]
			switch {
			case lvl < item.Level && last:
				prefix.WriteString(treeSpace)
			case lvl < item.Level:
				prefix.WriteString(treePipe)
			case last:
				prefix.WriteString(treeCorner)
			default:
				prefix.WriteString(treeBranch)
			}
		}

		title := item.Title
		if item.ID != "" {
			title += " " + StyleDim.Render(item.ID)
		}
		statusPrefix := ""
		switch {
		case item.Muted:
			title = Dim(title)
		case strings.EqualFold(item.Status, "done"):
			statusPrefix = StyleGreen.Render("✔ ")
			title = Dim(title)
		case strings.EqualFold(item.Status, string(domain.StatusActive)):
			statusPrefix = StyleYellowBold.Render("▶ ")
		}

		content := StyleDim.Render(prefix.String()) + statusPrefix + title
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}
		if w := lipgloss.Width(content); w > maxContentWidth {
			maxContentWidth = w
		}
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge == "" {
			b.WriteString(li.content + "\n")
			continue
		}
		pad := max(maxContentWidth-lipgloss.Width(li.content), 0)
		b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
	}
	return b.String()
}

// BranchTreeOptions controls what BranchTree includes.
type BranchTreeOptions struct {
	ShowTasks    bool
	ShowArchived bool
}

// BranchTree flattens the branch DAG below the root into tree items.
// A branch with several parents is expanded under the first one reached;
// later occurrences are shown as references.
func BranchTree(p *domain.Project, opts BranchTreeOptions) []TreeItem {
	root, ok := p.Root()
	if !ok {
		return nil
	}
	var items []TreeItem
	seen := map[string]bool{}

	var walk func(b *domain.Branch, lasts []bool)
	walk = func(b *domain.Branch, lasts []bool) {
		level := len(lasts)
		if seen[b.ID] {
			items = append(items, TreeItem{
				Title: "↗ " + b.Title, ID: b.ID, Level: level, Lasts: lasts, Muted: true,
			})
			return
		}
		seen[b.ID] = true
		items = append(items, TreeItem{
			Title:  b.Title,
			ID:     b.ID,
			Level:  level,
			Lasts:  lasts,
			Status: string(b.Status),
			Detail: branchDetail(p, b),
			Muted:  b.Archived,
		})

		var children []*domain.Branch
		for _, cid := range b.ChildrenIDs {
			c, ok := p.Branches[cid]
			if !ok || (c.Archived && !opts.ShowArchived) {
				continue
			}
			children = append(children, c)
		}

		n := len(children)
		if opts.ShowTasks {
			n += len(b.Tasks)
		}
		i := 0
		if opts.ShowTasks {
			for _, t := range b.Tasks {
				i++
				status := ""
				if t.Completed {
					status = "done"
				}
				items = append(items, TreeItem{
					Title: "· " + t.Title, ID: t.ID, Level: level + 1,
					Lasts: appendLast(lasts, i == n), Status: status,
				})
			}
		}
		for _, c := range children {
			i++
			walk(c, appendLast(lasts, i == n))
		}
	}
	walk(root, nil)
	return items
}

func branchDetail(p *domain.Project, b *domain.Branch) string {
	var parts []string
	if b.Status != "" {
		parts = append(parts, strings.ToLower(string(b.Status)))
	}
	if len(b.Tasks) > 0 {
		done := 0
		for _, t := range b.Tasks {
			if t.Completed {
				done++
			}
		}
		parts = append(parts, fmt.Sprintf("%d/%d", done, len(b.Tasks)))
	}
	if person, ok := p.PersonByID(b.ResponsibleID); ok {
		parts = append(parts, person.Initials)
	}
	if b.Archived {
		parts = append(parts, "archived")
	}
	return strings.Join(parts, " · ")
}

func appendLast(lasts []bool, last bool) []bool {
	out := make([]bool, len(lasts), len(lasts)+1)
	copy(out, lasts)
	return append(out, last)
}
