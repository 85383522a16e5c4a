package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/arbor/internal/cli/formatter"
	"github.com/alexanderramin/arbor/internal/integrity"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

func arborHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.FocusedButton = lipgloss.NewStyle().Foreground(formatter.ColorFg).Background(formatter.ColorHeader).Padding(0, 1)
	t.Focused.BlurredButton = lipgloss.NewStyle().Foreground(formatter.ColorDim).Padding(0, 1)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func confirmForm(title string, result *bool) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Affirmative("Yes").
				Negative("No").
				Value(result),
		),
	).WithTheme(arborHuhTheme()).WithShowHelp(false)
}

// Orphan decisions offered by the resolve prompt.
const (
	orphanRestore = "restore"
	orphanDelete  = "delete"
	orphanSkip    = "skip"
)

// orphanForm asks what to do with each orphan. choices is filled with one
// decision per orphan id.
func orphanForm(orphans []integrity.OrphanInfo, choices map[string]*string) *huh.Form {
	fields := make([]huh.Field, 0, len(orphans))
	for _, o := range orphans {
		choice := orphanRestore
		choices[o.ID] = &choice
		fields = append(fields, huh.NewSelect[string]().
			Title(o.Title).
			Description(fmt.Sprintf("%s · %s · %s", o.ID, o.Status, formatter.Plural(o.TaskCount, "task"))).
			Options(
				huh.NewOption("Restore under root", orphanRestore),
				huh.NewOption("Delete", orphanDelete),
				huh.NewOption("Leave for later", orphanSkip),
			).
			Value(&choice))
	}
	return huh.NewForm(huh.NewGroup(fields...)).WithTheme(arborHuhTheme())
}

// splitChoices turns prompt answers into restore and delete lists in
// orphan order.
func splitChoices(orphans []integrity.OrphanInfo, choices map[string]*string) (restore, del []string) {
	for _, o := range orphans {
		c, ok := choices[o.ID]
		if !ok {
			continue
		}
		switch *c {
		case orphanRestore:
			restore = append(restore, o.ID)
		case orphanDelete:
			del = append(del, o.ID)
		}
	}
	return restore, del
}

func validateOptionalDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("invalid date %q: use YYYY-MM-DD", s)
	}
	return nil
}
