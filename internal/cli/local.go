package cli

import (
	"clinicdesk/internal/app"
	"clinicdesk/internal/textutil"
	"clinicdesk/pkg/domain"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the local document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runOpts{loadLocal: true}, func(_ context.Context, a *app.App, found bool) error {
				out := cmd.OutOrStdout()
				if !found {
					fmt.Fprintf(out, "Snapshot: %s\n", warn("none"))
				} else {
					fmt.Fprintf(out, "Snapshot: %s\n", ok("loaded"))
				}
				st := a.Service.Status()
				user := st.UserName
				if user == "" {
					user = warn("(unset)")
				}
				identity := st.Identity
				if identity == "" {
					identity = warn("(none)")
				}
				state := ok("clean")
				if st.Dirty {
					state = warn("unsaved changes")
				}
				fmt.Fprintf(out, "State:    %s\n", state)
				fmt.Fprintf(out, "User:     %s\n", user)
				fmt.Fprintf(out, "Identity: %s\n", identity)
				fmt.Fprintln(out)
				for _, schema := range domain.Schemas() {
					fmt.Fprintf(out, "  %-24s %d\n", schema.Key, st.Records[schema.Key])
				}
				return nil
			})
		},
	}
}

// SearchCmd returns the search command.
func SearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <term>",
		Short: "Find records containing term, ignoring case and accents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runOpts{loadLocal: true}, func(_ context.Context, a *app.App, _ bool) error {
				out := cmd.OutOrStdout()
				hits := a.Store.Search(args[0])
				if len(hits) == 0 {
					fmt.Fprintln(out, warn("no matches"))
					return nil
				}
				for _, h := range hits {
					where := string(h.Domain)
					if h.View != "" {
						where += "/" + h.View
					}
					fmt.Fprintf(out, "%-28s %s  (%s)\n", where, h.Title, h.ItemID)
				}
				return nil
			})
		},
	}
}

// UserNameCmd returns the username command.
func UserNameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "username <name>",
		Short: "Set the user name substituted into scripts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runOpts{loadLocal: true}, func(ctx context.Context, a *app.App, _ bool) error {
				if err := a.Store.SetUserName(args[0]); err != nil {
					return err
				}
				if err := a.Service.SaveLocalSnapshot(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s user name set to %s\n", ok("✓"), a.Store.UserName())
				return nil
			})
		},
	}
}

// ImportValuesCmd returns the import-values command.
func ImportValuesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-values <file>",
		Short: "Replace one view of a categorized domain from a normalized file",
		Long: `import-values reads {"domain", "view", "categories", "items"} and
replaces that view wholesale. domain defaults to valueTable and view to the
domain's first view.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			return withApp(cmd, runOpts{loadLocal: true}, func(ctx context.Context, a *app.App, _ bool) error {
				f, err := a.Importer.InstallFile(data)
				if err != nil {
					return err
				}
				if err := a.Service.SaveLocalSnapshot(ctx); err != nil {
					return err
				}
				where := string(f.Domain)
				if f.View != "" {
					where += "/" + f.View
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s replaced %s\n", ok("✓"), where)
				return nil
			})
		},
	}
}

// ScriptCmd returns the script command group.
func ScriptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Work with attendant scripts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "Print a script with [nome] replaced by the user name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runOpts{loadLocal: true}, func(_ context.Context, a *app.App, _ bool) error {
				item, ok := findScript(a, args[0])
				if !ok {
					return domain.NotFoundError{Domain: domain.DomainScripts, Kind: domain.KindItem, ID: args[0]}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, item.Title)
				fmt.Fprintln(out, textutil.ReplaceUserName(item.Content, a.Store.UserName()))
				return nil
			})
		},
	})
	return cmd
}

func findScript(a *app.App, id string) (domain.ScriptItem, bool) {
	scripts := a.Store.Scripts()
	for _, view := range scripts.Schema().Views {
		for _, c := range scripts.Categories(view) {
			if it, ok := scripts.Item(view, c.ID, id); ok {
				return it, true
			}
		}
	}
	return domain.ScriptItem{}, false
}
