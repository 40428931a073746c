package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bookworm/internal/service"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stored bookmarks as CSV",
	Long:  "Writes every stored bookmark as name,url,browser,source rows to stdout or a file.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "out", "o", "", "Path to output CSV file (default stdout)")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) (err error) {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	open, err := a.storeOpener()
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		w = f
	}

	n, err := service.NewExportService(open).WriteCSV(cmd.Context(), w)
	if err != nil {
		return err
	}
	a.log.Debug("exported bookmarks", zap.Int("count", n), zap.String("out", exportOutput))
	return nil
}
