package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/groupmark/internal/app"
	"github.com/MrSnakeDoc/groupmark/internal/config"
	"github.com/MrSnakeDoc/groupmark/internal/logger"
	"github.com/MrSnakeDoc/groupmark/internal/store/session"
	"github.com/MrSnakeDoc/groupmark/internal/version"
)

var (
	workspaceFlag string
	storageFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "groupmark",
	Short: "Grouped, position-tracking bookmarks for a workspace",
	Long: `groupmark keeps named groups of code bookmarks for one workspace and
keeps them on their lines while files are edited, renamed and deleted.

Run "groupmark serve" for the local bridge the editor talks to; the other
commands work on the stored documents directly while no bridge is running.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Flags win over the environment and .env.
		if workspaceFlag != "" {
			if err := os.Setenv("GROUPMARK_WORKSPACE", workspaceFlag); err != nil {
				return err
			}
		}
		if storageFlag != "" {
			if err := os.Setenv("GROUPMARK_STORAGE_DIR", storageFlag); err != nil {
				return err
			}
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "workspace root (default: $GROUPMARK_WORKSPACE or the working directory)")
	rootCmd.PersistentFlags().StringVar(&storageFlag, "storage-dir", "", "directory holding the documents (default: <workspace>/.vscode/groupbookmarks)")
	rootCmd.SetVersionTemplate(version.String() + "\n")
}

// withCore opens and loads the stored documents for a one-shot command.
// Session state is not touched, so the file or redis backend stays as the
// bridge left it.
func withCore(ctx context.Context, fn func(ctx context.Context, core *app.Core) error) error {
	cfg := config.Load()
	log := app.NewLogger(cfg)
	defer func() { _ = log.Sync() }()

	core, err := app.Open(cfg, log, session.NewMemory(), nil)
	if err != nil {
		return fmt.Errorf("open storage %s: %w (is a bridge running? use its HTTP API instead)", cfg.StorageDir, err)
	}
	defer func() {
		if err := core.Close(); err != nil {
			log.Warn("failed to release storage lock", logger.Error(err))
		}
	}()

	if err := core.Load(ctx); err != nil {
		return err
	}
	return fn(ctx, core)
}
