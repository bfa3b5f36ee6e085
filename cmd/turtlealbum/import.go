package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/erazemk/turtlealbum/internal/blob"
	"github.com/erazemk/turtlealbum/internal/importer"
	"github.com/erazemk/turtlealbum/internal/logging"
)

var (
	importExcel string
	importZip   string
	templateOut string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import breeders from an Excel sheet and an optional image ZIP",
	Long: `Import upserts breeders by code from the first sheet of an .xlsx file.
Images are taken from ZIP folders named after the codes.

Examples:
  # Import breeders only
  turtlealbum import --excel breeders.xlsx

  # Import breeders with their photos
  turtlealbum import --excel breeders.xlsx --zip photos.zip`,
	Args: cobra.NoArgs,
	RunE: runImport,
}

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write the Excel import template",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(templateOut)
		if err != nil {
			return fmt.Errorf("creating template: %w", err)
		}
		if err := importer.WriteTemplate(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("writing template: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Template written: %s\n", templateOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(templateCmd)

	importCmd.Flags().StringVarP(&importExcel, "excel", "e", "", "Excel file to import (.xlsx)")
	importCmd.Flags().StringVarP(&importZip, "zip", "z", "", "ZIP of image folders named by code")
	_ = importCmd.MarkFlagRequired("excel")

	templateCmd.Flags().StringVarP(&templateOut, "output", "o", "breeder_import_template.xlsx", "output file")
}

func runImport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	if err != nil {
		return err
	}
	defer closeLog()

	excel, err := os.Open(importExcel)
	if err != nil {
		return fmt.Errorf("opening excel file: %w", err)
	}
	defer excel.Close()

	limits := importer.Limits{MaxFiles: cfg.Import.MaxZipFiles, MaxBytes: cfg.Import.MaxZipBytes}
	var archive *importer.Archive
	if importZip != "" {
		z, err := os.Open(importZip)
		if err != nil {
			return fmt.Errorf("opening zip file: %w", err)
		}
		defer z.Close()
		info, err := z.Stat()
		if err != nil {
			return fmt.Errorf("reading zip file: %w", err)
		}
		if archive, err = importer.OpenArchive(z, info.Size(), limits); err != nil {
			return err
		}
	}

	database, err := openDatabase(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer database.Close()

	blobs, err := blob.Open(ctx, cfg.BlobOptions())
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	im := &importer.Importer{DB: database, Blobs: blobs, Logger: logger}
	res, err := im.Run(ctx, excel, archive)
	if err != nil {
		return err
	}
	printImportResult(cmd.OutOrStdout(), res)
	return nil
}

func printImportResult(w io.Writer, res *importer.Result) {
	fmt.Fprintf(w, "Rows: %d, imported: %d, failed: %d\n", res.Total, res.Imported, res.Failed)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  error: %s\n", e)
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}
