package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newCleanupCmd creates the cleanup subcommand
func newCleanupCmd() *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old execution history",
		Long: `Delete execution records older than the given age. Retention runs
outside the evaluation path; schedule it from cron or run it by hand.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if olderThan <= 0 {
				return fmt.Errorf("--older-than must be positive")
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.close()

			cutoff := time.Now().UTC().Add(-olderThan)
			deleted, err := a.ledger.DeleteBefore(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			fmt.Printf("Deleted %d records executed before %s\n", deleted, cutoff.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 720*time.Hour, "delete records older than this age")
	return cmd
}
