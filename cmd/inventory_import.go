package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"warehouse.GO/service/inventory"
)

var (
	importFile  string
	importBatch int
)

var importCmd = &cobra.Command{
	Use:   "inventory:import",
	Short: "Import inventory items from CSV (upsert by SKU)",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("open CSV: %w", err)
		}
		defer f.Close()

		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()

		res, err := a.Inventory.Import(cmd.Context(), f, inventory.ImportOptions{BatchSize: importBatch})
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		out := cmd.OutOrStdout()
		for _, w := range res.Warnings {
			fmt.Fprintf(out, "  [warn] %s\n", w)
		}
		fmt.Fprintf(out, `
=== Import Report ===
CSV rows:   %d
Created:    %d
Updated:    %d
Skipped:    %d
Total time: %s
=====================
`, res.TotalRows, res.Created, res.Updated, res.Skipped, res.TotalTime.Round(time.Millisecond))
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "CSV file (sku,name,category,unit,initialStock,reorderLevel,unitCost,...)")
	importCmd.Flags().IntVarP(&importBatch, "batch", "b", 500, "Rows per transaction")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(importCmd)
}
