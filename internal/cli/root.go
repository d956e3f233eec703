// Package cli implements the clinicdesk command tree.
package cli

import (
	"clinicdesk/internal/app"
	"clinicdesk/internal/config"
	"context"
	"errors"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	ok   = color.New(color.FgGreen).SprintFunc()
	warn = color.New(color.FgYellow).SprintFunc()
	bad  = color.New(color.FgRed).SprintFunc()
)

// openApp builds the application for one command run. Tests replace it.
var openApp = func(cmd *cobra.Command, needRemote bool) (*app.App, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	var opts []app.Option
	if !needRemote {
		opts = append(opts, app.WithoutRemote())
	}
	return app.New(commandContext(cmd), cfg, opts...)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

type runOpts struct {
	remote    bool
	loadLocal bool
}

var errNoSnapshot = errors.New("no local snapshot; run pull, save or import first")

// withApp opens the application, optionally restores the local snapshot, runs
// fn and closes everything.
func withApp(cmd *cobra.Command, o runOpts, fn func(ctx context.Context, a *app.App, found bool) error) (err error) {
	a, err := openApp(cmd, o.remote)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	ctx := commandContext(cmd)
	found := false
	if o.loadLocal {
		if found, err = a.Service.LoadLocalSnapshot(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a, found)
}

// NewRootCmd returns the clinicdesk root command with every subcommand.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "clinicdesk",
		Short: "Clinic front-desk content store",
		Long: `clinicdesk keeps the clinic's scripts, exams, contacts, value table,
professionals, notices and other reference content in a local snapshot and
reconciles it with the shared remote database.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().String("config", "", "path to the YAML config file (default $"+config.EnvConfigPath+")")

	root.AddCommand(PullCmd())
	root.AddCommand(PushCmd())
	root.AddCommand(SaveCmd())
	root.AddCommand(MigrateCmd())
	root.AddCommand(ExportCmd())
	root.AddCommand(ImportCmd())
	root.AddCommand(ArchiveCmd())
	root.AddCommand(StatusCmd())
	root.AddCommand(SearchCmd())
	root.AddCommand(UserNameCmd())
	root.AddCommand(ImportValuesCmd())
	root.AddCommand(ScriptCmd())
	return root
}
