package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/arbor/internal/domain"
)

// FormatProjectList renders project summaries, marking the active one.
func FormatProjectList(projects []domain.ProjectSummary, activeID string, now time.Time) string {
	rows := make([][]string, 0, len(projects))
	for _, p := range projects {
		marker := " "
		name := p.Name
		if p.ID == activeID {
			marker = StyleGreen.Render("●")
			name = Bold(name)
		}
		rows = append(rows, []string{marker, name, TruncID(p.ID), HumanTimestampFrom(p.UpdatedAt, now)})
	}
	return RenderTable([]string{"", "NAME", "ID", "UPDATED"}, rows)
}

// FormatProject renders a project header followed by its branch tree.
func FormatProject(p *domain.Project, opts BranchTreeOptions) string {
	var b strings.Builder
	b.WriteString(Header(p.Name) + "\n")
	b.WriteString(Dim(fmt.Sprintf("%s · %s · %s", p.ID,
		Plural(len(p.Branches), "branch"), Plural(p.TaskCount(), "task"))) + "\n\n")
	tree := RenderTree(BranchTree(p, opts))
	if tree == "" {
		b.WriteString(StyleRed.Render("root branch missing: run `arbor health repair`") + "\n")
		return b.String()
	}
	b.WriteString(tree)
	return b.String()
}

// FormatPeople renders the project's collaborators.
func FormatPeople(people []domain.Person) string {
	rows := make([][]string, 0, len(people))
	for _, p := range people {
		rows = append(rows, []string{StylePurple.Render(p.Initials), p.Name, p.Email, TruncID(p.ID)})
	}
	return RenderTable([]string{"", "NAME", "EMAIL", "ID"}, rows)
}
