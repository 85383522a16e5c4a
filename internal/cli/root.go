package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/arbor/internal/service"
	"github.com/spf13/cobra"
)

// GlobalOptions are the persistent flags every command shares.
type GlobalOptions struct {
	ConfigPath string
	DBPath     string
	Offline    bool
	ProjectID  string
}

// Session is the wired workspace a command runs against.
type Session struct {
	Workspace   *service.Workspace
	MetricsAddr string
	Close       func() error
}

// Bootstrap builds a Session once flags are parsed.
type Bootstrap func(ctx context.Context, opts GlobalOptions) (*Session, error)

// App carries the bootstrap and the session built from it.
type App struct {
	Boot          Bootstrap
	IsInteractive func() bool
	Now           func() time.Time

	opts    GlobalOptions
	session *Session
}

func (a *App) ws() *service.Workspace { return a.session.Workspace }

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *App) interactive() bool {
	return a.IsInteractive != nil && a.IsInteractive()
}

// NewRootCmd creates the top-level "arbor" command and registers all
// subcommands against app.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "arbor",
		Short:         "Local-first branch and task tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if app.session != nil {
				return nil
			}
			s, err := app.Boot(cmd.Context(), app.opts)
			if err != nil {
				return fmt.Errorf("starting arbor: %w", err)
			}
			app.session = s
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			s := app.session
			app.session = nil
			if s == nil || s.Close == nil {
				return nil
			}
			return s.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.opts.ConfigPath, "config", "", "config file (default ~/.arbor/config.yaml)")
	flags.StringVar(&app.opts.DBPath, "db", "", "local database path")
	flags.BoolVar(&app.opts.Offline, "offline", false, "keep every write in the local queue")
	flags.StringVarP(&app.opts.ProjectID, "project", "p", "", "project id or name (default: active tab)")

	root.AddCommand(
		newProjectCmd(app),
		newBranchCmd(app),
		newTaskCmd(app),
		newPersonCmd(app),
		newHealthCmd(app),
		newSyncCmd(app),
	)
	return root
}
