package cli

import (
	"fmt"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/spf13/cobra"
)

func newBranchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Edit branches of the selected project",
	}
	cmd.AddCommand(
		newBranchAddCmd(app),
		newBranchUpdateCmd(app),
		newBranchDeleteCmd(app),
		newBranchArchiveCmd(app),
		newBranchLinkCmd(app, true),
		newBranchLinkCmd(app, false),
		newBranchMoveCmd(app),
	)
	return cmd
}

func newBranchAddCmd(app *App) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "add PARENT",
		Short: "Add a child branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			parentID, err := resolveBranchID(p, args[0])
			if err != nil {
				return err
			}
			id, err := app.ws().AddBranch(ctx, p.ID, parentID)
			if err != nil {
				return err
			}
			if title != "" {
				if err := app.ws().UpdateBranch(ctx, p.ID, id, domain.BranchPatch{Title: &title}); err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "branch title")
	return cmd
}

func newBranchUpdateCmd(app *App) *cobra.Command {
	var (
		title, description, responsible string
		start, end, due                 string
		label, sprint, collapsed        bool
		status                          statusValue
	)
	cmd := &cobra.Command{
		Use:   "update BRANCH",
		Short: "Change branch fields; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			id, err := resolveBranchID(p, args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			patch := domain.BranchPatch{
				Title:       changedString(flags, "title", title),
				Description: changedString(flags, "description", description),
				IsLabel:     changedBool(flags, "label", label),
				IsSprint:    changedBool(flags, "sprint", sprint),
				StartDate:   changedString(flags, "start", start),
				EndDate:     changedString(flags, "end", end),
				DueDate:     changedString(flags, "due", due),
				Collapsed:   changedBool(flags, "collapsed", collapsed),
			}
			if flags.Changed("status") {
				patch.Status = &status.status
			}
			if flags.Changed("responsible") {
				personID := ""
				if responsible != "" {
					if personID, err = resolvePersonID(p, responsible); err != nil {
						return err
					}
				}
				patch.ResponsibleID = &personID
			}
			for _, d := range []*string{patch.StartDate, patch.EndDate, patch.DueDate} {
				if d != nil {
					if err := validateOptionalDate(*d); err != nil {
						return err
					}
				}
			}
			return app.ws().UpdateBranch(ctx, p.ID, id, patch)
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "title")
	f.StringVar(&description, "description", "", "description")
	f.Var(&status, "status", "PLANNED, ACTIVE, STANDBY, CLOSED or CANCELLED")
	f.BoolVar(&label, "label", false, "render as a label")
	f.BoolVar(&sprint, "sprint", false, "children are numbered sprints")
	f.StringVar(&responsible, "responsible", "", "responsible person (empty to clear)")
	f.StringVar(&start, "start", "", "start date YYYY-MM-DD")
	f.StringVar(&end, "end", "", "end date YYYY-MM-DD")
	f.StringVar(&due, "due", "", "due date YYYY-MM-DD")
	f.BoolVar(&collapsed, "collapsed", false, "collapse in tree views")
	return cmd
}

func newBranchDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete BRANCH",
		Short: "Delete a branch; its children may become orphans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBranch(cmd, args[0], func(p *domain.Project, id string) error {
				return app.ws().DeleteBranch(cmd.Context(), p.ID, id)
			})
		},
	}
}

func newBranchArchiveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "archive BRANCH",
		Short: "Toggle the archived flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBranch(cmd, args[0], func(p *domain.Project, id string) error {
				return app.ws().ToggleBranchArchive(cmd.Context(), p.ID, id)
			})
		},
	}
}

func newBranchLinkCmd(app *App, link bool) *cobra.Command {
	use, short := "link CHILD PARENT", "Add PARENT as a parent of CHILD"
	if !link {
		use, short = "unlink CHILD PARENT", "Remove the link between CHILD and PARENT"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			childID, err := resolveBranchID(p, args[0])
			if err != nil {
				return err
			}
			parentID, err := resolveBranchID(p, args[1])
			if err != nil {
				return err
			}
			if link {
				return app.ws().LinkBranch(ctx, p.ID, childID, parentID)
			}
			return app.ws().UnlinkBranch(ctx, p.ID, childID, parentID)
		},
	}
}

func newBranchMoveCmd(app *App) *cobra.Command {
	dir := directionValue{dir: mutate.Next}
	cmd := &cobra.Command{
		Use:   "move BRANCH",
		Short: "Move a branch one slot among its siblings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBranch(cmd, args[0], func(p *domain.Project, id string) error {
				return app.ws().MoveBranch(cmd.Context(), p.ID, id, dir.dir)
			})
		},
	}
	cmd.Flags().Var(&dir, "dir", "prev or next")
	return cmd
}

func (a *App) withBranch(cmd *cobra.Command, input string, fn func(p *domain.Project, id string) error) error {
	p, err := a.project(cmd.Context())
	if err != nil {
		return err
	}
	id, err := resolveBranchID(p, input)
	if err != nil {
		return err
	}
	return fn(p, id)
}
