package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/groupmark/internal/app"
)

var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List, take and restore snapshots of the documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var backupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List snapshots, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd.Context(), func(_ context.Context, core *app.Core) error {
			names, err := core.Store.Backups()
			if err != nil {
				return err
			}
			if len(names) == 0 {
				fmt.Fprintln(cmd.ErrOrStderr(), "no backups")
				return nil
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		})
	},
}

var backupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Snapshot the documents now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd.Context(), func(_ context.Context, core *app.Core) error {
			name, err := core.Store.Backup()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		})
	},
}

var backupsRestoreCmd = &cobra.Command{
	Use:   "restore <name>",
	Short: "Copy a snapshot back over the documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCore(cmd.Context(), func(ctx context.Context, core *app.Core) error {
			if err := core.Reloader.Restore(ctx, core.Store, args[0]); err != nil {
				return err
			}
			b, g, r := core.Index.Counts()
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s: %d bookmarks, %d groups, %d relations\n", args[0], b, g, r)
			return nil
		})
	},
}

func init() {
	backupsCmd.AddCommand(backupsListCmd, backupsCreateCmd, backupsRestoreCmd)
	rootCmd.AddCommand(backupsCmd)
}
