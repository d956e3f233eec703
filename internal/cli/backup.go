package cli

import (
	"clinicdesk/internal/app"
	"clinicdesk/internal/backup"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// ExportCmd returns the export command.
func ExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the local document as a backup payload",
		Long:  "export writes the backup payload to file, or to stdout when no file is given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, runOpts{loadLocal: true}, func(_ context.Context, a *app.App, _ bool) error {
				data, err := a.Service.ExportBackup()
				if err != nil {
					return err
				}
				if len(args) == 0 {
					_, err := cmd.OutOrStdout().Write(append(data, '\n'))
					return err
				}
				if err := os.WriteFile(args[0], data, 0o600); err != nil {
					return fmt.Errorf("write backup: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", ok("✓"), args[0])
				return nil
			})
		},
	}
}

// ImportCmd returns the import command.
func ImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the local document with a backup payload",
		Long: `import replaces the whole local document with the backup payload.
Domains missing from the payload are reset to empty. The remote is not
touched; run push to publish the result.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			return withApp(cmd, runOpts{}, func(ctx context.Context, a *app.App, _ bool) error {
				keys, err := a.Service.ImportBackup(ctx, data)
				if err != nil {
					return err
				}
				if err := a.Service.SaveLocalSnapshot(ctx); err != nil {
					return err
				}
				names := make([]string, len(keys))
				for i, k := range keys {
					names[i] = string(k)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s imported %s\n", ok("✓"), strings.Join(names, ", "))
				return nil
			})
		},
	}
}

// ArchiveCmd returns the archive command.
func ArchiveCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Copy the local document to the backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, runOpts{loadLocal: !list}, func(ctx context.Context, a *app.App, _ bool) error {
				out := cmd.OutOrStdout()
				if list {
					infos, err := backup.ListArchives(ctx, a.Archive)
					if err != nil {
						return err
					}
					for _, info := range infos {
						fmt.Fprintf(out, "%s\t%d\t%s\n", info.Key, info.Size, info.Metadata["domains"])
					}
					return nil
				}
				info, err := a.Service.ArchiveBackup(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s archived %s (%d bytes)\n", ok("✓"), info.Key, info.Size)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List stored archives instead of writing one")
	return cmd
}
