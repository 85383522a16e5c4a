package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/cli/formatter"
	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Manage projects and open tabs",
	}
	cmd.AddCommand(
		newProjectCreateCmd(app),
		newProjectListCmd(app),
		newProjectOpenCmd(app),
		newProjectCloseCmd(app),
		newProjectUseCmd(app),
		newProjectRenameCmd(app),
		newProjectDeleteCmd(app),
		newProjectDownloadCmd(app),
		newProjectUploadCmd(app),
		newProjectShowCmd(app),
	)
	return cmd
}

func newProjectCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "create NAME",
		Short: "Create a project and open it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.ws().CreateProject(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s %s\n", p.Name, formatter.Dim(p.ID))
			return nil
		},
	}
}

func newProjectListCmd(app *App) *cobra.Command {
	var remoteOnly, openOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List local, open or remote projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var (
				projects []domain.ProjectSummary
				err      error
			)
			switch {
			case remoteOnly:
				projects, err = app.ws().ListRemoteProjects(ctx)
			case openOnly:
				projects = app.ws().OpenProjects()
			default:
				projects, err = app.ws().ListLocalProjects(ctx)
			}
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProjectList(projects, app.ws().ActiveID(), app.now()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&remoteOnly, "remote", false, "list projects stored remotely")
	cmd.Flags().BoolVar(&openOnly, "open", false, "list open tabs in tab order")
	cmd.MarkFlagsMutuallyExclusive("remote", "open")
	return cmd
}

func newProjectOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open ID",
		Short: "Open a project in a new tab, downloading it if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0], app.ws().RemoteEnabled())
			if err != nil {
				return err
			}
			p, err := app.ws().OpenProject(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened %s\n", p.Name)
			return nil
		},
	}
}

func newProjectCloseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "close [ID]",
		Short: "Close a tab (default: the active one)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := app.ws().ActiveID()
			if len(args) == 1 {
				resolved, err := resolveProjectID(ctx, app, args[0], false)
				if err != nil {
					return err
				}
				id = resolved
			}
			if id == "" {
				return fmt.Errorf("no open project to close")
			}
			if err := app.ws().CloseProject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Closed.")
			return nil
		},
	}
}

func newProjectUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Switch the active tab",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0], false)
			if err != nil {
				return err
			}
			if err := app.ws().SetActive(ctx, id); err != nil {
				return err
			}
			p, _ := app.ws().Active()
			fmt.Fprintf(cmd.OutOrStdout(), "Active project: %s\n", p.Name)
			return nil
		},
	}
}

func newProjectRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename NAME",
		Short: "Rename the selected project",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			return app.ws().RenameProject(ctx, p.ID, strings.Join(args, " "))
		},
	}
}

func newProjectDeleteCmd(app *App) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a project locally and remotely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0], app.ws().RemoteEnabled())
			if err != nil {
				return err
			}
			if !yes {
				if !app.interactive() {
					return fmt.Errorf("refusing to delete %s without --yes", id)
				}
				confirmed := false
				if err := confirmForm(fmt.Sprintf("Delete project %s everywhere?", id), &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.ws().DeleteProject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func newProjectDownloadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "download ID",
		Short: "Replace the local copy with the remote one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, args[0], true)
			if err != nil {
				return err
			}
			p, err := app.ws().DownloadProject(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Downloaded %s (%s, %s)\n", p.Name,
				formatter.Plural(len(p.Branches), "branch"), formatter.Plural(p.TaskCount(), "task"))
			return nil
		},
	}
}

func newProjectUploadCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [ID]",
		Short: "Queue every row of a project for the remote",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := app.ws().ActiveID()
			if len(args) == 1 {
				resolved, err := resolveProjectID(ctx, app, args[0], false)
				if err != nil {
					return err
				}
				id = resolved
			}
			if id == "" {
				return fmt.Errorf("no project selected")
			}
			if err := app.ws().UploadProject(ctx, id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Upload queued.")
			return nil
		},
	}
}

func newProjectShowCmd(app *App) *cobra.Command {
	var opts formatter.BranchTreeOptions
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the branch tree of the selected project",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProject(p, opts))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.ShowTasks, "tasks", "t", false, "include tasks")
	cmd.Flags().BoolVarP(&opts.ShowArchived, "archived", "a", false, "include archived branches")
	return cmd
}
