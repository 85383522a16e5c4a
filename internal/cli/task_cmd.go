package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/alexanderramin/arbor/internal/mutate"
	"github.com/spf13/cobra"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Edit tasks of the selected project",
	}
	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskUpdateCmd(app),
		newTaskToggleCmd(app),
		newTaskDeleteCmd(app),
		newTaskMoveCmd(app),
		newTaskToCmd(app),
		newTaskBulkCmd(app),
		newTaskBulkMoveCmd(app),
	)
	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add BRANCH TITLE...",
		Short: "Append a task to a branch",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withBranch(cmd, args[0], func(p *domain.Project, branchID string) error {
				id, err := app.ws().AddTask(cmd.Context(), p.ID, branchID, strings.Join(args[1:], " "))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			})
		},
	}
}

func newTaskUpdateCmd(app *App) *cobra.Command {
	var (
		title, description, assignee, due string
		pinned                            bool
	)
	cmd := &cobra.Command{
		Use:   "update TASK",
		Short: "Change task fields; only the flags given are applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTask(cmd, args[0], func(p *domain.Project, branchID, taskID string) error {
				flags := cmd.Flags()
				patch := domain.TaskPatch{
					Title:       changedString(flags, "title", title),
					Description: changedString(flags, "description", description),
					DueDate:     changedString(flags, "due", due),
					Pinned:      changedBool(flags, "pinned", pinned),
				}
				if patch.DueDate != nil {
					if err := validateOptionalDate(*patch.DueDate); err != nil {
						return err
					}
				}
				if flags.Changed("assignee") {
					personID := ""
					if assignee != "" {
						var err error
						if personID, err = resolvePersonID(p, assignee); err != nil {
							return err
						}
					}
					patch.AssigneeID = &personID
				}
				return app.ws().UpdateTask(cmd.Context(), p.ID, branchID, taskID, patch)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&title, "title", "", "title")
	f.StringVar(&description, "description", "", "description")
	f.StringVar(&assignee, "assignee", "", "assigned person (empty to clear)")
	f.StringVar(&due, "due", "", "due date YYYY-MM-DD")
	f.BoolVar(&pinned, "pinned", false, "pin to the top of views")
	return cmd
}

func newTaskToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle TASK",
		Short: "Flip a task between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTask(cmd, args[0], func(p *domain.Project, branchID, taskID string) error {
				return app.ws().ToggleTask(cmd.Context(), p.ID, branchID, taskID)
			})
		},
	}
}

func newTaskDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete TASK",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTask(cmd, args[0], func(p *domain.Project, branchID, taskID string) error {
				return app.ws().DeleteTask(cmd.Context(), p.ID, branchID, taskID)
			})
		},
	}
}

func newTaskMoveCmd(app *App) *cobra.Command {
	dir := directionValue{dir: mutate.Next}
	cmd := &cobra.Command{
		Use:   "move TASK",
		Short: "Move a task one slot within its branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTask(cmd, args[0], func(p *domain.Project, branchID, taskID string) error {
				return app.ws().MoveTask(cmd.Context(), p.ID, branchID, taskID, dir.dir)
			})
		},
	}
	cmd.Flags().Var(&dir, "dir", "prev or next")
	return cmd
}

func newTaskToCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "to TASK BRANCH",
		Short: "Move a task to the end of another branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.withTask(cmd, args[0], func(p *domain.Project, branchID, taskID string) error {
				target, err := resolveBranchID(p, args[1])
				if err != nil {
					return err
				}
				return app.ws().MoveTaskToBranch(cmd.Context(), p.ID, taskID, branchID, target)
			})
		},
	}
}

func newTaskBulkCmd(app *App) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "bulk BRANCH",
		Short: "Replace a branch's tasks with one per line of input",
		Long: "Reads lines from --file or stdin. Existing tasks whose title matches a line " +
			"are kept, first match wins; other tasks are deleted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if file != "" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			text, err := io.ReadAll(in)
			if err != nil {
				return fmt.Errorf("reading task lines: %w", err)
			}
			return app.withBranch(cmd, args[0], func(p *domain.Project, branchID string) error {
				return app.ws().BulkUpdateTasks(cmd.Context(), p.ID, branchID, string(text))
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "read lines from a file instead of stdin")
	return cmd
}

func newTaskBulkMoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-move BRANCH TASK...",
		Short: "Move several tasks of one branch to BRANCH",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			target, err := resolveBranchID(p, args[0])
			if err != nil {
				return err
			}
			source := ""
			ids := make([]string, 0, len(args)-1)
			for _, in := range args[1:] {
				branchID, taskID, err := resolveTask(p, in)
				if err != nil {
					return err
				}
				if source != "" && branchID != source {
					return fmt.Errorf("tasks must share one source branch")
				}
				source = branchID
				ids = append(ids, taskID)
			}
			return app.ws().BulkMoveTasks(ctx, p.ID, ids, source, target)
		},
	}
}

func (a *App) withTask(cmd *cobra.Command, input string, fn func(p *domain.Project, branchID, taskID string) error) error {
	p, err := a.project(cmd.Context())
	if err != nil {
		return err
	}
	branchID, taskID, err := resolveTask(p, input)
	if err != nil {
		return err
	}
	return fn(p, branchID, taskID)
}
