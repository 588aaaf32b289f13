package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var recalcCmd = &cobra.Command{
	Use:   "stock:recalculate",
	Short: "Recompute current stock of every item from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()
		fixed, err := a.Calc.RecalculateAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Corrected %d item(s).\n", fixed)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "sheets:export",
	Short: "Export every sheet to the configured sinks",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, done, err := bootstrap()
		if err != nil {
			return err
		}
		defer done()
		rep, err := a.Exporter.Run(cmd.Context())
		if rep != nil {
			out := cmd.OutOrStdout()
			for sheet, n := range rep.Rows {
				fmt.Fprintf(out, "  %-20s %d rows\n", sheet, n)
			}
			for sink, status := range rep.Sinks {
				fmt.Fprintf(out, "  sink %-15s %s\n", sink, status)
			}
			fmt.Fprintf(out, "Took %s\n", rep.Duration)
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(recalcCmd, exportCmd)
}
