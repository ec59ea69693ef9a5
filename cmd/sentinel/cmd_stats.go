package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newStatsCmd creates the stats subcommand
func newStatsCmd() *cobra.Command {
	var alertName string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregated execution outcomes",
		Long:  `Aggregate the execution history into counts and duration figures.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.ledger.Stats(cmd.Context(), alertName)
			if err != nil {
				return err
			}

			scope := alertName
			if scope == "" {
				scope = "all alerts"
			}
			fmt.Printf("Scope:            %s\n", scope)
			fmt.Printf("Total executions: %d\n", stats.TotalExecutions)
			if stats.TotalExecutions == 0 {
				return nil
			}
			fmt.Printf("  success:        %d\n", stats.SuccessCount)
			fmt.Printf("  failure:        %d\n", stats.FailureCount)
			fmt.Printf("  error:          %d\n", stats.ErrorCount)
			fmt.Printf("Duration (ms):    avg %.1f  min %d  max %d\n",
				stats.AvgDurationMS, stats.MinDurationMS, stats.MaxDurationMS)
			return nil
		},
	}

	cmd.Flags().StringVar(&alertName, "alert", "", "restrict to one alert")
	return cmd
}
