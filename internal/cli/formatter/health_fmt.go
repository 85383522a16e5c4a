package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/integrity"
)

// FormatHealth renders a health report.
func FormatHealth(r integrity.HealthReport) string {
	if r.Healthy() {
		return StyleGreen.Render("✔ project structure is healthy") + "\n"
	}

	var b strings.Builder
	b.WriteString(Header("Structure problems") + "\n")
	if r.MissingRootNode {
		b.WriteString(StyleRed.Render("✖ root branch is missing") + "\n")
	}
	if r.LegacyRootFound {
		b.WriteString(StyleYellow.Render("▲ legacy roots: "+strings.Join(r.LegacyRootIDs, ", ")) + "\n")
	}
	if len(r.DanglingRefs) > 0 {
		b.WriteString(StyleYellow.Render(fmt.Sprintf("▲ %s", Plural(len(r.DanglingRefs), "broken link"))) + "\n")
		for _, d := range r.DanglingRefs {
			kind := "one-sided"
			if d.Missing {
				kind = "missing"
			}
			b.WriteString(Dim(fmt.Sprintf("   %s.%s → %s (%s)", d.BranchID, d.Field, d.RefID, kind)) + "\n")
		}
	}
	if len(r.OrphanedBranches) > 0 {
		b.WriteString("\n")
		rows := make([][]string, 0, len(r.OrphanedBranches))
		for _, o := range r.OrphanedBranches {
			rows = append(rows, []string{o.ID, o.Title, string(o.Status), fmt.Sprint(o.TaskCount)})
		}
		b.WriteString(RenderTable([]string{"ORPHAN", "TITLE", "STATUS", "TASKS"}, rows))
	}
	return b.String()
}
