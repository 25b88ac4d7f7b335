package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xxxsen/curato/internal/service"
)

func newImportCmd(configPath *string) *cobra.Command {
	var (
		file       string
		noRelocate bool
		categoryID string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "import a JSON array of scraped records",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			raw, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			records, err := service.ParseRecords(raw)
			if err != nil {
				return err
			}
			cfg, conn, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			a, err := buildApp(cfg, conn)
			if err != nil {
				return err
			}

			opts := service.DefaultImportOptions()
			opts.AutoRelocateImages = !noRelocate
			opts.CategoryID = categoryID
			if opts.CategoryID == "" {
				opts.CategoryID = cfg.Import.DefaultCategory
			}
			out := cmd.ErrOrStderr()
			opts.OnProgress = func(current, total int) {
				fmt.Fprintf(out, "image %d/%d\n", current, total)
			}
			result, err := a.imports.ImportBatch(context.Background(), records, opts)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "path to a JSON array of records")
	cmd.Flags().BoolVar(&noRelocate, "no-relocate", false, "keep original image urls")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id for records without one")
	return cmd
}
