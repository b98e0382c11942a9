package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/marketlog/internal/report"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the latest analysis and a version table as markdown",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default: export.path)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := a.store.Load(cmd.Context())
	if err != nil {
		return err
	}

	path := exportOutput
	if path == "" {
		path = a.cfg.Export.Path
	}
	if err := report.Export(doc, path); err != nil {
		return err
	}
	a.logger.Info("history exported", "path", path, "versions", doc.Len())
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d versions to %s\n", doc.Len(), path)
	return nil
}
