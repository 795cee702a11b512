package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [symbol]",
	Short: "List recorded training runs",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var symbol string
		if len(args) == 1 {
			symbol = strings.ToUpper(args[0])
		}
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.store.GetRuns(cmd.Context(), symbol, limit)
		if err != nil {
			return err
		}
		return a.reporter.ReportHistory(cmd.Context(), runs)
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum runs to show (-1 = all)")
	rootCmd.AddCommand(historyCmd)
}
