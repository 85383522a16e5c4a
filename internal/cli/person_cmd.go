package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/arbor/internal/cli/formatter"
	"github.com/alexanderramin/arbor/internal/domain"
	"github.com/spf13/cobra"
)

func newPersonCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage project collaborators",
	}
	cmd.AddCommand(
		newPersonAddCmd(app),
		newPersonUpdateCmd(app),
		newPersonRemoveCmd(app),
		newPersonListCmd(app),
	)
	return cmd
}

type personFlags struct {
	name, email, phone, initials, color string
}

func (pf *personFlags) register(cmd *cobra.Command, withName bool) {
	f := cmd.Flags()
	if withName {
		f.StringVar(&pf.name, "name", "", "display name")
	}
	f.StringVar(&pf.email, "email", "", "email address")
	f.StringVar(&pf.phone, "phone", "", "phone number")
	f.StringVar(&pf.initials, "initials", "", "initials shown in tree views")
	f.StringVar(&pf.color, "color", "", "badge colour, e.g. #83a598")
}

func (pf *personFlags) patch(cmd *cobra.Command) domain.PersonPatch {
	f := cmd.Flags()
	return domain.PersonPatch{
		Name:     changedString(f, "name", pf.name),
		Email:    changedString(f, "email", pf.email),
		Phone:    changedString(f, "phone", pf.phone),
		Initials: changedString(f, "initials", pf.initials),
		Color:    changedString(f, "color", pf.color),
	}
}

func newPersonAddCmd(app *App) *cobra.Command {
	var pf personFlags
	cmd := &cobra.Command{
		Use:   "add NAME...",
		Short: "Add a collaborator",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			patch := pf.patch(cmd)
			patch.Name = domain.Ptr(strings.Join(args, " "))
			id, err := app.ws().AddPerson(ctx, p.ID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	pf.register(cmd, false)
	return cmd
}

func newPersonUpdateCmd(app *App) *cobra.Command {
	var pf personFlags
	cmd := &cobra.Command{
		Use:   "update PERSON",
		Short: "Change collaborator fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			id, err := resolvePersonID(p, args[0])
			if err != nil {
				return err
			}
			return app.ws().UpdatePerson(ctx, p.ID, id, pf.patch(cmd))
		},
	}
	pf.register(cmd, true)
	return cmd
}

func newPersonRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove PERSON",
		Short: "Remove a collaborator; their assignments read as unassigned",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p, err := app.project(ctx)
			if err != nil {
				return err
			}
			id, err := resolvePersonID(p, args[0])
			if err != nil {
				return err
			}
			return app.ws().RemovePerson(ctx, p.ID, id)
		},
	}
}

func newPersonListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collaborators",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.project(cmd.Context())
			if err != nil {
				return err
			}
			if len(p.People) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No people yet.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPeople(p.People))
			return nil
		},
	}
}
