package main

import (
	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/groupmark/internal/app"
	"github.com/MrSnakeDoc/groupmark/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local HTTP bridge for the editor",
	Long: `Loads the documents, takes the storage lock and serves the HTTP bridge
until interrupted. Configuration comes from GROUPMARK_* environment
variables and an optional .env file.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := app.New(cmd.Context(), config.Load())
		if err != nil {
			return err
		}
		return a.Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
