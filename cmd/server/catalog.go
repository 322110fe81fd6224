package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/backoffice/internal/catalog"
)

var (
	exportFormat string
	exportOutput string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the product field catalog",
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog as JSON or CUE for the UI build",
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			data []byte
			err  error
		)
		switch exportFormat {
		case "json":
			data, err = catalog.Products.ExportJSON()
		case "cue":
			data, err = catalog.Products.ExportCUE()
		default:
			return fmt.Errorf("unknown format %q: want json or cue", exportFormat)
		}
		if err != nil {
			return err
		}
		if exportOutput == "" || exportOutput == "-" {
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}
		return os.WriteFile(exportOutput, data, 0o644)
	},
}

func init() {
	catalogExportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json or cue")
	catalogExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file (default stdout)")
	catalogCmd.AddCommand(catalogExportCmd)
}
