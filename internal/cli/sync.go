package cli

import (
	"clinicdesk/internal/app"
	"clinicdesk/pkg/domain"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
)

// PullCmd returns the pull command.
func PullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local document with the remote content",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runOpts{remote: true}, func(ctx context.Context, a *app.App, _ bool) error {
				if err := a.Service.PullAll(ctx); err != nil {
					return err
				}
				if err := a.Service.SaveLocalSnapshot(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s pulled %d records\n", ok("✓"), totalRecords(a))
				return nil
			})
		},
	}
}

// PushCmd returns the push command.
func PushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Overwrite the remote with the local snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runOpts{remote: true, loadLocal: true}, func(ctx context.Context, a *app.App, found bool) error {
				if !found {
					return errNoSnapshot
				}
				if err := a.Service.PushSnapshot(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s pushed %d records\n", ok("✓"), totalRecords(a))
				return nil
			})
		},
	}
}

// SaveCmd returns the save command.
func SaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Load the best available document and save it locally",
		Long: `save pulls the remote document, falling back to the local snapshot
when the remote is unreachable or empty, and writes the result to the local
snapshot slot.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runOpts{remote: true}, func(ctx context.Context, a *app.App, _ bool) error {
				src, err := a.Service.Bootstrap(ctx)
				if err != nil {
					return err
				}
				if err := a.Service.SaveLocalSnapshot(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s saved document from %s\n", ok("✓"), src)
				return nil
			})
		},
	}
}

// MigrateCmd returns the migrate command.
func MigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate <file>",
		Short: "Upload a backup file to the remote under fresh ids",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			return withApp(cmd, runOpts{remote: true}, func(ctx context.Context, a *app.App, _ bool) error {
				report, err := a.Service.MigrateFromBackup(ctx, string(data))
				out := cmd.OutOrStdout()
				for _, key := range report.Domains {
					fmt.Fprintf(out, "%s %s\n", ok("✓"), key)
				}
				tables := make([]string, 0, len(report.Rows))
				for table := range report.Rows {
					tables = append(tables, table)
				}
				sort.Strings(tables)
				for _, table := range tables {
					fmt.Fprintf(out, "  %s: %d rows\n", table, report.Rows[table])
				}
				var partial *domain.PartialMigrationError
				if errors.As(err, &partial) {
					for _, key := range partial.FailedDomains() {
						fmt.Fprintf(out, "%s %s: %v\n", bad("✗"), key, partial.Failed[key])
						if n := partial.Written[key]; n > 0 {
							fmt.Fprintf(out, "  %s: %d rows written before the failure\n", key, n)
						}
					}
				}
				return err
			})
		},
	}
}

func totalRecords(a *app.App) int {
	n := 0
	for _, c := range a.Service.Status().Records {
		n += c
	}
	return n
}
