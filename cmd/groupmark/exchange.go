package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrSnakeDoc/groupmark/internal/app"
	"github.com/MrSnakeDoc/groupmark/internal/exchange"
	"github.com/MrSnakeDoc/groupmark/internal/utils"
)

var (
	exportOutput string
	exportFormat string
	importMode   string
	importFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every bookmark, group and relation as one document",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := exchange.FormatFor(exportOutput)
		if exportFormat != "" {
			var err error
			if f, err = exchange.ParseFormat(exportFormat); err != nil {
				return err
			}
		}
		return withCore(cmd.Context(), func(_ context.Context, core *app.Core) error {
			doc := core.Exchange.Export()

			if exportOutput == "" || exportOutput == "-" {
				return exchange.Encode(cmd.OutOrStdout(), doc, f)
			}
			out, err := os.Create(exportOutput)
			if err != nil {
				return err
			}
			if err := encodeAndClose(out, doc, f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "exported %d bookmarks, %d groups, %d relations to %s\n",
				len(doc.Bookmarks), len(doc.Groups), len(doc.Relations), exportOutput)
			return nil
		})
	},
}

// encodeAndClose writes doc to out and closes it, returning a failed close.
func encodeAndClose(out io.WriteCloser, doc exchange.Document, f exchange.Format) error {
	if err := exchange.Encode(out, doc, f); err != nil {
		utils.Close(out)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close export file: %w", err)
	}
	return nil
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Load a document written by export",
	Long: `Imports a document. In merge mode (default) imported records are added
and colliding ids get fresh ones. In replace mode the current data is backed
up first and then replaced. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode, err := exchange.ParseMode(importMode)
		if err != nil {
			return err
		}
		path := args[0]
		f := exchange.FormatFor(path)
		if importFormat != "" {
			if f, err = exchange.ParseFormat(importFormat); err != nil {
				return err
			}
		}

		var r io.Reader = cmd.InOrStdin()
		if path != "-" {
			in, err := os.Open(path)
			if err != nil {
				return err
			}
			defer utils.Close(in)
			r = in
		}
		doc, err := exchange.Decode(r, f)
		if err != nil {
			return err
		}

		return withCore(cmd.Context(), func(ctx context.Context, core *app.Core) error {
			res, err := core.Exchange.Import(ctx, doc, mode)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		})
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: stdout); .yaml/.yml selects YAML")
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "json or yaml (overrides the file extension)")
	importCmd.Flags().StringVar(&importMode, "mode", string(exchange.ModeMerge), "merge or replace")
	importCmd.Flags().StringVar(&importFormat, "format", "", "json or yaml (overrides the file extension)")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
