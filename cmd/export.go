package cmd

import (
	"fmt"
	"os"

	"github.com/iksnae/aichat-history/internal"
	"github.com/iksnae/aichat-history/internal/export"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session to a file",
	Long: `Export a chat session to one of the supported formats (md, json, jsonl, yaml).

By default the output file is named after the session title and written to
the current directory. Use --out to pick a different path, or --out - to
write to stdout.

Use 'aichat-history list' to see available session IDs.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := args[0]

		registry, _, err := newRegistry()
		if err != nil {
			return err
		}

		exporter, err := export.NewExporter(exportFormat)
		if err != nil {
			return err
		}

		detail, err := registry.SessionDetail(sessionID)
		if err != nil {
			if internal.IsNotFound(err) {
				return fmt.Errorf("session not found: %s (use 'aichat-history list' to see available sessions)", sessionID)
			}
			return err
		}

		if exportOut == "-" {
			return exporter.Export(detail, os.Stdout)
		}

		path := exportOut
		if path == "" {
			path = export.SafeFilename(detail.Session.Title, exporter.Extension())
		}

		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create file %s: %w", path, err)
		}
		if err := exporter.Export(detail, file); err != nil {
			_ = file.Close()
			return &internal.ExportError{Format: exportFormat, Path: path, Err: err}
		}
		if err := file.Close(); err != nil {
			return fmt.Errorf("failed to close file %s: %w", path, err)
		}

		internal.PrintSuccess(fmt.Sprintf("Exported %s to %s", detail.Session.ID, path))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "md", "Export format (md, json, jsonl, yaml)")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file path (default derived from title, - for stdout)")
}
