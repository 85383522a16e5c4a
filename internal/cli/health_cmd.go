package cli

import (
	"fmt"

	"github.com/alexanderramin/arbor/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newHealthCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check and repair the branch graph",
	}
	cmd.AddCommand(
		newHealthCheckCmd(app),
		newHealthRepairCmd(app),
		newHealthResolveCmd(app),
	)
	return cmd
}

func newHealthCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Report orphans, legacy roots and broken links",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(cmd.Context())
			if err != nil {
				return err
			}
			report, err := app.ws().CheckHealth(p.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHealth(report))
			return nil
		},
	}
}

func newHealthRepairCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "repair",
		Short: "Restore the root and fix links; orphans are left for resolve",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(cmd.Context())
			if err != nil {
				return err
			}
			report, err := app.ws().RepairStructure(cmd.Context(), p.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHealth(report))
			return nil
		},
	}
}

func newHealthResolveCmd(app *App) *cobra.Command {
	var restore, del []string
	var interactive bool
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Restore orphans under the root or delete them",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			if interactive {
				if !app.interactive() {
					return fmt.Errorf("--interactive needs a terminal")
				}
				report, err := app.ws().CheckHealth(p.ID)
				if err != nil {
					return err
				}
				if len(report.OrphanedBranches) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No orphans.")
					return nil
				}
				choices := map[string]*string{}
				if err := orphanForm(report.OrphanedBranches, choices).Run(); err != nil {
					return err
				}
				restore, del = splitChoices(report.OrphanedBranches, choices)
			}
			if len(restore) == 0 && len(del) == 0 {
				return fmt.Errorf("nothing to resolve: pass --restore, --delete or -i")
			}
			report, err := app.ws().ResolveOrphans(ctx, p.ID, restore, del)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHealth(report))
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&restore, "restore", nil, "orphan ids to link under the root")
	cmd.Flags().StringSliceVar(&del, "delete", nil, "orphan ids to delete")
	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "choose per orphan")
	return cmd
}
